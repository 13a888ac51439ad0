package savequeue

import (
	"context"
	"time"

	"github.com/m04kA/SMC-SaveSync/internal/domain"
)

// Gateway удалённое сохранение, по методу на вариант payload
type Gateway interface {
	SaveProfile(ctx context.Context, idempotencyKey string, p *domain.ProfilePayload) error
	SaveStatus(ctx context.Context, idempotencyKey string, p *domain.StatusPayload) error
	SaveAvailability(ctx context.Context, idempotencyKey string, p *domain.AvailabilityPayload) error
	SavePayment(ctx context.Context, idempotencyKey string, p *domain.PaymentPayload) error
	SaveSettings(ctx context.Context, idempotencyKey string, p *domain.SettingsPayload) error
}

// Journal долговременный журнал очереди
type Journal interface {
	Persist(ops []*domain.Operation) error
	Load() []*domain.Operation
	Clear() error
}

// Recorder метрики очереди
type Recorder interface {
	ObserveSave(opType string, outcome string)
	ObserveAttempt(opType string, result string)
	ObserveDrain(reason string, d time.Duration)
	SetQueueSize(pending int, failed int)
}

// Logger интерфейс для логирования
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	InfoCtx(ctx context.Context, format string, v ...interface{})
	WarnCtx(ctx context.Context, format string, v ...interface{})
	ErrorCtx(ctx context.Context, format string, v ...interface{})
}

type nopRecorder struct{}

func (nopRecorder) ObserveSave(string, string)         {}
func (nopRecorder) ObserveAttempt(string, string)      {}
func (nopRecorder) ObserveDrain(string, time.Duration) {}
func (nopRecorder) SetQueueSize(int, int)              {}
