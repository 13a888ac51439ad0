package gateway

import "errors"

var (
	// ErrUnauthenticated возвращается, когда нет вошедшего пользователя
	// Повтор без повторного входа бессмысленен
	ErrUnauthenticated = errors.New("gateway: unauthenticated")

	// ErrInvalidInput возвращается при пустом ключе идемпотентности или payload
	ErrInvalidInput = errors.New("gateway: invalid input data")

	// ErrInternal возвращается при ошибках бэкенда (временная ошибка)
	ErrInternal = errors.New("gateway: internal error")
)
