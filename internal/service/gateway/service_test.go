package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SaveSync/internal/auth"
	"github.com/m04kA/SMC-SaveSync/internal/domain"
	"github.com/m04kA/SMC-SaveSync/pkg/logger"
)

type fakeRepo struct {
	claimed  map[string]bool
	applied  []domain.OperationType
	claimErr error
	writeErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{claimed: make(map[string]bool)}
}

func (r *fakeRepo) ClaimMutation(_ context.Context, key string, _ string, _ domain.OperationType) (bool, error) {
	if r.claimErr != nil {
		return false, r.claimErr
	}
	if r.claimed[key] {
		return false, nil
	}
	r.claimed[key] = true
	return true, nil
}

func (r *fakeRepo) write(t domain.OperationType) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.applied = append(r.applied, t)
	return nil
}

func (r *fakeRepo) UpsertProfile(context.Context, string, *domain.ProfilePayload) error {
	return r.write(domain.OperationProfile)
}

func (r *fakeRepo) UpsertStatus(context.Context, string, *domain.StatusPayload) error {
	return r.write(domain.OperationStatus)
}

func (r *fakeRepo) ReplaceAvailability(context.Context, string, *domain.AvailabilityPayload) error {
	return r.write(domain.OperationAvailability)
}

func (r *fakeRepo) UpsertPayment(context.Context, string, *domain.PaymentPayload) error {
	return r.write(domain.OperationPayment)
}

func (r *fakeRepo) UpsertSettings(context.Context, string, *domain.SettingsPayload) error {
	return r.write(domain.OperationSettings)
}

// fakeTx откатывает claimed при ошибке, как настоящая транзакция
type fakeTx struct {
	repo  *fakeRepo
	calls int
}

func (tx *fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.calls++
	before := make(map[string]bool, len(tx.repo.claimed))
	for k, v := range tx.repo.claimed {
		before[k] = v
	}
	if err := fn(ctx); err != nil {
		tx.repo.claimed = before
		return err
	}
	return nil
}

func newService(t *testing.T) (*Service, *fakeRepo, *fakeTx, *auth.Session) {
	t.Helper()

	repo := newFakeRepo()
	tx := &fakeTx{repo: repo}
	session := auth.NewSession()
	require.NoError(t, session.SignIn(auth.Identity{UserID: "prov-1"}))

	return NewService(repo, session, tx, logger.Nop()), repo, tx, session
}

func TestService_SaveEachVariant(t *testing.T) {
	svc, repo, _, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveProfile(ctx, "k1", &domain.ProfilePayload{DisplayName: "Ayu"}))
	require.NoError(t, svc.SaveStatus(ctx, "k2", &domain.StatusPayload{Status: domain.StatusAvailable}))
	require.NoError(t, svc.SaveAvailability(ctx, "k3", &domain.AvailabilityPayload{}))
	require.NoError(t, svc.SavePayment(ctx, "k4", &domain.PaymentPayload{BankName: "BCA"}))
	require.NoError(t, svc.SaveSettings(ctx, "k5", &domain.SettingsPayload{Language: "en"}))

	assert.Equal(t, domain.OperationTypes, repo.applied)
}

func TestService_DuplicateKeyIsAppliedOnce(t *testing.T) {
	svc, repo, _, _ := newService(t)
	ctx := context.Background()
	p := &domain.StatusPayload{Status: domain.StatusBusy}

	require.NoError(t, svc.SaveStatus(ctx, "same-key", p))
	require.NoError(t, svc.SaveStatus(ctx, "same-key", p))

	assert.Len(t, repo.applied, 1)
}

func TestService_Unauthenticated(t *testing.T) {
	svc, repo, tx, session := newService(t)
	session.SignOut()

	err := svc.SavePayment(context.Background(), "k", &domain.PaymentPayload{BankName: "BCA"})

	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, tx.calls)
	assert.Empty(t, repo.applied)
}

func TestService_BackendFailureIsInternal(t *testing.T) {
	svc, repo, _, _ := newService(t)
	repo.writeErr = errors.New("connection reset")

	err := svc.SaveProfile(context.Background(), "k", &domain.ProfilePayload{DisplayName: "Ayu"})
	assert.ErrorIs(t, err, ErrInternal)

	// ключ не должен остаться занятым после отката
	repo.writeErr = nil
	require.NoError(t, svc.SaveProfile(context.Background(), "k", &domain.ProfilePayload{DisplayName: "Ayu"}))
	assert.Len(t, repo.applied, 1)
}

func TestService_InvalidInput(t *testing.T) {
	svc, _, tx, _ := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SaveSettings(ctx, "", &domain.SettingsPayload{}), ErrInvalidInput)
	assert.ErrorIs(t, svc.SaveStatus(ctx, "k", nil), ErrInvalidInput)
	assert.Zero(t, tx.calls)
}
