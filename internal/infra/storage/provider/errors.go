package provider

import "errors"

var (
	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("provider.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("provider.repository: failed to execute query")

	// ErrEncode возвращается, когда данные не удалось сериализовать в JSONB
	ErrEncode = errors.New("provider.repository: failed to encode value")
)
