package save_operation

import (
	"context"

	"github.com/m04kA/SMC-SaveSync/internal/domain"
	"github.com/m04kA/SMC-SaveSync/internal/service/savequeue"
)

type SaveManager interface {
	Save(ctx context.Context, payload domain.Payload, opts savequeue.SaveOptions) domain.SaveResult
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
