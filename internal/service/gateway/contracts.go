package gateway

import (
	"context"

	"github.com/m04kA/SMC-SaveSync/internal/auth"
	"github.com/m04kA/SMC-SaveSync/internal/domain"
)

// ProviderRepository интерфейс репозитория документов поставщика
type ProviderRepository interface {
	ClaimMutation(ctx context.Context, key string, userID string, opType domain.OperationType) (bool, error)
	UpsertProfile(ctx context.Context, userID string, p *domain.ProfilePayload) error
	UpsertStatus(ctx context.Context, userID string, p *domain.StatusPayload) error
	ReplaceAvailability(ctx context.Context, userID string, p *domain.AvailabilityPayload) error
	UpsertPayment(ctx context.Context, userID string, p *domain.PaymentPayload) error
	UpsertSettings(ctx context.Context, userID string, p *domain.SettingsPayload) error
}

// IdentityProvider источник текущей личности
type IdentityProvider interface {
	Current(ctx context.Context) (auth.Identity, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
