package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-SaveSync/internal/domain"
	"github.com/m04kA/SMC-SaveSync/pkg/dbmetrics"
	"github.com/m04kA/SMC-SaveSync/pkg/psqlbuilder"
)

// Repository репозиторий документов поставщика (профиль, статус, расписание, выплаты, настройки)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория поставщика
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// ClaimMutation регистрирует ключ идемпотентности
// Возвращает false, если мутация с этим ключом уже была применена
// Должен вызываться в той же транзакции, что и сама мутация
func (r *Repository) ClaimMutation(ctx context.Context, key string, userID string, opType domain.OperationType) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("applied_mutations").
		Columns("idempotency_key", "user_id", "operation_type").
		Values(key, userID, string(opType)).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING").
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: ClaimMutation - build insert query: %v", ErrBuildQuery, err)
	}

	res, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: ClaimMutation - execute insert: %v", ErrExecQuery, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: ClaimMutation - rows affected: %v", ErrExecQuery, err)
	}

	return affected == 1, nil
}

// UpsertProfile создает или обновляет публичный профиль
func (r *Repository) UpsertProfile(ctx context.Context, userID string, p *domain.ProfilePayload) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	var price60, price90, price120 int64
	if p.Pricing != nil {
		price60, price90, price120 = p.Pricing.Price60, p.Pricing.Price90, p.Pricing.Price120
	}

	query, args, err := psqlbuilder.Insert("provider_profiles").
		Columns(
			"user_id",
			"display_name",
			"bio",
			"whatsapp_number",
			"location",
			"languages",
			"massage_types",
			"price_60",
			"price_90",
			"price_120",
			"updated_at",
		).
		Values(
			userID,
			p.DisplayName,
			p.Bio,
			p.WhatsAppNumber,
			p.Location,
			pq.Array(p.Languages),
			pq.Array(p.MassageTypes),
			price60,
			price90,
			price120,
			squirrel.Expr("NOW()"),
		).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			whatsapp_number = EXCLUDED.whatsapp_number,
			location = EXCLUDED.location,
			languages = EXCLUDED.languages,
			massage_types = EXCLUDED.massage_types,
			price_60 = EXCLUDED.price_60,
			price_90 = EXCLUDED.price_90,
			price_120 = EXCLUDED.price_120,
			updated_at = EXCLUDED.updated_at`).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpsertProfile - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: UpsertProfile - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// UpsertStatus меняет онлайн-статус
func (r *Repository) UpsertStatus(ctx context.Context, userID string, p *domain.StatusPayload) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("provider_statuses").
		Columns("user_id", "status", "busy_until", "updated_at").
		Values(userID, string(p.Status), p.BusyUntil, squirrel.Expr("NOW()")).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			status = EXCLUDED.status,
			busy_until = EXCLUDED.busy_until,
			updated_at = EXCLUDED.updated_at`).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpsertStatus - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: UpsertStatus - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// ReplaceAvailability заменяет недельное расписание целиком
// Вызывать внутри транзакции, иначе между DELETE и INSERT расписание пустое
func (r *Repository) ReplaceAvailability(ctx context.Context, userID string, p *domain.AvailabilityPayload) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("provider_availability").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: ReplaceAvailability - build delete query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: ReplaceAvailability - execute delete: %v", ErrExecQuery, err)
	}

	if len(p.Slots) == 0 {
		return nil
	}

	insert := psqlbuilder.Insert("provider_availability").
		Columns("user_id", "weekday", "start_time", "end_time")
	for _, slot := range p.Slots {
		insert = insert.Values(userID, slot.Weekday, slot.Start, slot.End)
	}

	query, args, err = insert.ToSql()
	if err != nil {
		return fmt.Errorf("%w: ReplaceAvailability - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: ReplaceAvailability - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// UpsertPayment сохраняет реквизиты для выплат
func (r *Repository) UpsertPayment(ctx context.Context, userID string, p *domain.PaymentPayload) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("provider_payment_details").
		Columns("user_id", "bank_name", "account_name", "account_number", "updated_at").
		Values(userID, p.BankName, p.AccountName, p.AccountNumber, squirrel.Expr("NOW()")).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			bank_name = EXCLUDED.bank_name,
			account_name = EXCLUDED.account_name,
			account_number = EXCLUDED.account_number,
			updated_at = EXCLUDED.updated_at`).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpsertPayment - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: UpsertPayment - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// UpsertSettings сохраняет настройки дашборда (JSONB)
func (r *Repository) UpsertSettings(ctx context.Context, userID string, p *domain.SettingsPayload) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	settings, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: UpsertSettings - marshal settings: %v", ErrEncode, err)
	}

	query, args, err := psqlbuilder.Insert("provider_settings").
		Columns("user_id", "settings", "updated_at").
		Values(userID, squirrel.Expr("?::jsonb", string(settings)), squirrel.Expr("NOW()")).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			settings = EXCLUDED.settings,
			updated_at = EXCLUDED.updated_at`).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpsertSettings - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: UpsertSettings - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}
