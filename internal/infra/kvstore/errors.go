package kvstore

import "errors"

var (
	// ErrOpen возвращается, когда хранилище не удалось открыть
	ErrOpen = errors.New("kvstore: failed to open store")

	// ErrRead возвращается при ошибке чтения ключа
	ErrRead = errors.New("kvstore: failed to read item")

	// ErrWrite возвращается при ошибке записи ключа
	ErrWrite = errors.New("kvstore: failed to write item")

	// ErrClosed возвращается при обращении к закрытому хранилищу
	ErrClosed = errors.New("kvstore: store is closed")

	// ErrUnknownDriver возвращается для неизвестного драйвера
	ErrUnknownDriver = errors.New("kvstore: unknown driver")
)
