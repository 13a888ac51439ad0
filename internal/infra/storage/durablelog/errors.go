package durablelog

import "errors"

var (
	// ErrEncode возвращается, когда снимок очереди не удалось сериализовать
	ErrEncode = errors.New("durablelog: failed to encode snapshot")

	// ErrPersist возвращается при ошибке записи снимка в хранилище
	ErrPersist = errors.New("durablelog: failed to persist snapshot")

	// ErrClear возвращается при ошибке удаления снимка
	ErrClear = errors.New("durablelog: failed to clear snapshot")
)
