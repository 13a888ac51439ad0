package get_pending_saves

import "github.com/m04kA/SMC-SaveSync/internal/domain"

type SaveManager interface {
	GetPendingSaves() []domain.Operation
}

type Logger interface {
	Info(format string, v ...interface{})
}
