package sign_in

import "github.com/m04kA/SMC-SaveSync/internal/auth"

type Session interface {
	SignIn(id auth.Identity) error
}

// Drainer разбирает очередь: записи, ждавшие входа, уходят сразу
type Drainer interface {
	RequestDrain(reason string)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
}
