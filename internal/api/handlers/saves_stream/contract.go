package saves_stream

import "github.com/m04kA/SMC-SaveSync/internal/domain"

type SaveManager interface {
	Subscribe() (<-chan domain.QueueSnapshot, func())
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
}
