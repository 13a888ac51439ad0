package retry_saves

import (
	"context"

	"github.com/m04kA/SMC-SaveSync/internal/domain"
)

type SaveManager interface {
	RetryFailedSaves(ctx context.Context) domain.RetryResult
}

type Logger interface {
	Info(format string, v ...interface{})
}
