package healthcheck

import "errors"

var (
	// ErrUnavailable возвращается, когда бэкенд недоступен
	ErrUnavailable = errors.New("healthcheck client: backend unavailable")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("healthcheck client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("healthcheck client: invalid response")
)
