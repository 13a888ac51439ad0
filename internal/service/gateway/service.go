package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-SaveSync/internal/auth"
	"github.com/m04kA/SMC-SaveSync/internal/domain"
)

// Service удалённое сохранение документов поставщика
// Каждый вызов идемпотентен по ключу операции
type Service struct {
	repo      ProviderRepository
	identity  IdentityProvider
	txManager TransactionManager
	logger    Logger
}

// NewService создает новый экземпляр сервиса
func NewService(
	repo ProviderRepository,
	identity IdentityProvider,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		repo:      repo,
		identity:  identity,
		txManager: txManager,
		logger:    logger,
	}
}

// SaveProfile сохраняет публичный профиль
func (s *Service) SaveProfile(ctx context.Context, idempotencyKey string, p *domain.ProfilePayload) error {
	if p == nil {
		return fmt.Errorf("%w: SaveProfile - nil payload", ErrInvalidInput)
	}
	return s.apply(ctx, "SaveProfile", idempotencyKey, domain.OperationProfile, func(ctx context.Context, userID string) error {
		return s.repo.UpsertProfile(ctx, userID, p)
	})
}

// SaveStatus меняет онлайн-статус
func (s *Service) SaveStatus(ctx context.Context, idempotencyKey string, p *domain.StatusPayload) error {
	if p == nil {
		return fmt.Errorf("%w: SaveStatus - nil payload", ErrInvalidInput)
	}
	return s.apply(ctx, "SaveStatus", idempotencyKey, domain.OperationStatus, func(ctx context.Context, userID string) error {
		return s.repo.UpsertStatus(ctx, userID, p)
	})
}

// SaveAvailability заменяет недельное расписание
func (s *Service) SaveAvailability(ctx context.Context, idempotencyKey string, p *domain.AvailabilityPayload) error {
	if p == nil {
		return fmt.Errorf("%w: SaveAvailability - nil payload", ErrInvalidInput)
	}
	return s.apply(ctx, "SaveAvailability", idempotencyKey, domain.OperationAvailability, func(ctx context.Context, userID string) error {
		return s.repo.ReplaceAvailability(ctx, userID, p)
	})
}

// SavePayment сохраняет реквизиты для выплат
func (s *Service) SavePayment(ctx context.Context, idempotencyKey string, p *domain.PaymentPayload) error {
	if p == nil {
		return fmt.Errorf("%w: SavePayment - nil payload", ErrInvalidInput)
	}
	return s.apply(ctx, "SavePayment", idempotencyKey, domain.OperationPayment, func(ctx context.Context, userID string) error {
		return s.repo.UpsertPayment(ctx, userID, p)
	})
}

// SaveSettings сохраняет настройки дашборда
func (s *Service) SaveSettings(ctx context.Context, idempotencyKey string, p *domain.SettingsPayload) error {
	if p == nil {
		return fmt.Errorf("%w: SaveSettings - nil payload", ErrInvalidInput)
	}
	return s.apply(ctx, "SaveSettings", idempotencyKey, domain.OperationSettings, func(ctx context.Context, userID string) error {
		return s.repo.UpsertSettings(ctx, userID, p)
	})
}

// apply разрешает личность в момент вызова и применяет мутацию в транзакции
// Повторная доставка с тем же ключом возвращает успех без повторного применения
func (s *Service) apply(
	ctx context.Context,
	op string,
	idempotencyKey string,
	opType domain.OperationType,
	mutate func(ctx context.Context, userID string) error,
) error {
	if idempotencyKey == "" {
		return fmt.Errorf("%w: %s - empty idempotency key", ErrInvalidInput, op)
	}

	identity, err := s.identity.Current(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoIdentity) {
			s.logger.Warn("%s: no authenticated identity, key=%s", op, idempotencyKey)
			return fmt.Errorf("%w: %s", ErrUnauthenticated, op)
		}
		return fmt.Errorf("%w: %s - resolve identity: %v", ErrInternal, op, err)
	}

	var duplicate bool
	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		claimed, err := s.repo.ClaimMutation(ctx, idempotencyKey, identity.UserID, opType)
		if err != nil {
			return err
		}
		if !claimed {
			duplicate = true
			return nil
		}
		return mutate(ctx, identity.UserID)
	})
	if err != nil {
		s.logger.Error("%s: failed for user=%s key=%s: %v", op, identity.UserID, idempotencyKey, err)
		return fmt.Errorf("%w: %s - apply mutation: %v", ErrInternal, op, err)
	}

	if duplicate {
		s.logger.Info("%s: key=%s already applied for user=%s, skipping", op, idempotencyKey, identity.UserID)
		return nil
	}

	s.logger.Info("%s: applied for user=%s key=%s", op, identity.UserID, idempotencyKey)
	return nil
}
