// Package connectivity отслеживает доступность бэкенда и видимость дашборда
// и запускает проход очереди сохранений при восстановлении связи.
package connectivity

import "context"

// Event событие платформы
type Event string

const (
	EventOnline        Event = "online"
	EventOffline       Event = "offline"
	EventBecameVisible Event = "became-visible"
)

// Причины запроса прохода очереди
const (
	ReasonOnline   = "online"
	ReasonVisible  = "visible"
	ReasonPeriodic = "periodic"
)

// Source источник состояния связи
type Source interface {
	IsOnline() bool
	// Subscribe возвращает канал событий и функцию отписки
	Subscribe() (<-chan Event, func())
}

// Drainer тот, кого монитор просит разобрать очередь
type Drainer interface {
	RequestDrain(reason string)
	HasPending() bool
}

// Pinger проверка доступности бэкенда
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc адаптер функции к Pinger (например, db.PingContext)
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
}
