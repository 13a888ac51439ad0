package savequeue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SaveSync/internal/domain"
	"github.com/m04kA/SMC-SaveSync/internal/infra/kvstore"
	"github.com/m04kA/SMC-SaveSync/internal/service/gateway"
)

func TestSave_ImmediateSuccess(t *testing.T) {
	f := newFixture(t, newFakeGateway(succeed), true)

	res := f.m.Save(context.Background(), statusPayload(), SaveOptions{Immediate: true})

	assert.True(t, res.Success)
	assert.False(t, res.SavedOffline)
	assert.NotEmpty(t, res.OperationID)
	assert.Empty(t, f.m.GetPendingSaves())

	_, ok, err := f.store.GetItem(domain.DefaultStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSave_OfflineQueuesThenDrainsOnOnline(t *testing.T) {
	f := newFixture(t, newFakeGateway(succeed), false)
	f.m.Start(context.Background())

	res := f.m.Save(context.Background(), profilePayload("A"), SaveOptions{})

	assert.True(t, res.SavedOffline)
	assert.Zero(t, f.gw.callCount())
	require.Len(t, f.m.GetPendingSaves(), 1)
	assert.Len(t, f.journal.Load(), 1)

	f.sw.SetOnline(true)

	assert.Eventually(t, func() bool { return f.m.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.gw.callCount())
	assert.Empty(t, f.journal.Load())
}

func TestSave_ImmediateWhileOfflineFallsBackToQueue(t *testing.T) {
	f := newFixture(t, newFakeGateway(fail), false)

	res := f.m.Save(context.Background(), paymentPayload(), SaveOptions{Critical: true})

	assert.True(t, res.SavedOffline)
	assert.Equal(t, 1, res.RetryCount)
	assert.Contains(t, res.Error, errNetwork.Error())
	assert.Equal(t, 1, f.gw.callCount())
	assert.Len(t, f.m.GetPendingSaves(), 1)
}

func TestSave_RetryCeilingAndManualRetry(t *testing.T) {
	f := newFixture(t, newFakeGateway(fail), true)

	res := f.m.Save(context.Background(), paymentPayload(), SaveOptions{MaxRetries: 2})
	require.True(t, res.SavedOffline)
	require.Equal(t, 1, res.RetryCount)
	assert.Equal(t, []time.Duration{time.Second}, f.clock.armed())

	f.clock.Advance(time.Second)
	f.settle()

	pending := f.m.GetPendingSaves()
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].RetryCount)
	assert.True(t, pending[0].IsExhausted())
	assert.Equal(t, 2, f.gw.callCount())
	assert.Empty(t, f.clock.armed())

	// исчерпавшая потолок запись не повторяется сама
	f.clock.Advance(time.Hour)
	f.settle()
	f.m.RequestDrain("periodic")
	f.settle()
	assert.Equal(t, 2, f.gw.callCount())
	assert.False(t, f.m.HasPending())
	assert.Equal(t, domain.QueueSnapshot{Failed: 1}, f.m.Snapshot())

	f.gw.setRespond(succeed)
	retry := f.m.RetryFailedSaves(context.Background())

	assert.Equal(t, domain.RetryResult{Attempted: 1, Saved: 1}, retry)
	assert.Empty(t, f.m.GetPendingSaves())
	assert.Equal(t, 3, f.gw.callCount())
}

func TestSave_ManualRetryResetsCounter(t *testing.T) {
	f := newFixture(t, newFakeGateway(fail), true)

	res := f.m.Save(context.Background(), statusPayload(), SaveOptions{MaxRetries: 1})
	require.True(t, res.Failed)
	require.Equal(t, 1, res.RetryCount)

	retry := f.m.RetryFailedSaves(context.Background())
	assert.Equal(t, 1, retry.Attempted)
	assert.Equal(t, 1, retry.Failed)
	assert.Equal(t, 1, retry.Remaining)

	// сброс даёт ещё одну полную попытку, а не ноль
	retry = f.m.RetryFailedSaves(context.Background())
	assert.Equal(t, 1, retry.Attempted)
	assert.Equal(t, 3, f.gw.callCount())

	pending := f.m.GetPendingSaves()
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
}

func TestSave_FailedAfterExhaustingOnFirstAttempt(t *testing.T) {
	f := newFixture(t, newFakeGateway(fail), true)

	res := f.m.Save(context.Background(), statusPayload(), SaveOptions{MaxRetries: 1})

	assert.True(t, res.Failed)
	assert.False(t, res.SavedOffline)
	assert.True(t, res.Accepted())
	assert.Len(t, f.m.GetPendingSaves(), 1)
}

func TestSave_FailedAttemptsEqualCeiling(t *testing.T) {
	for _, ceiling := range []int{1, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", ceiling), func(t *testing.T) {
			f := newFixture(t, newFakeGateway(fail), true)

			f.m.Save(context.Background(), statusPayload(), SaveOptions{MaxRetries: ceiling})
			for i := 0; i < 10; i++ {
				f.clock.Advance(domain.DefaultMaxDelay)
				f.settle()
			}

			assert.Equal(t, ceiling, f.gw.callCount())
			assert.Equal(t, ceiling, f.m.GetPendingSaves()[0].RetryCount)
		})
	}
}

func TestSave_BackoffSchedule(t *testing.T) {
	f := newFixture(t, newFakeGateway(fail), true)

	f.m.Save(context.Background(), statusPayload(), SaveOptions{MaxRetries: 5})

	for _, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second} {
		require.Equal(t, []time.Duration{want}, f.clock.armed())

		f.clock.Advance(want - time.Millisecond)
		f.settle()
		calls := f.gw.callCount()

		f.clock.Advance(time.Millisecond)
		f.settle()
		assert.Equal(t, calls+1, f.gw.callCount())
	}
	assert.Empty(t, f.clock.armed())
}

func TestSave_TimerWhileOfflineDoesNothing(t *testing.T) {
	f := newFixture(t, newFakeGateway(fail), true)
	f.m.Start(context.Background())

	f.m.Save(context.Background(), statusPayload(), SaveOptions{})
	require.Equal(t, 1, f.gw.callCount())

	f.sw.SetOnline(false)
	f.clock.Advance(time.Minute)
	f.settle()
	assert.Equal(t, 1, f.gw.callCount())

	f.gw.setRespond(succeed)
	f.sw.SetOnline(true)

	assert.Eventually(t, func() bool { return f.m.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, f.gw.callCount())
}

func TestSave_AuthFailureKeepsBudget(t *testing.T) {
	unauthenticated := func(context.Context, domain.OperationType) error {
		return fmt.Errorf("%w: SaveProfile", gateway.ErrUnauthenticated)
	}
	f := newFixture(t, newFakeGateway(unauthenticated), true)

	res := f.m.Save(context.Background(), profilePayload("Ayu"), SaveOptions{})

	assert.True(t, res.SavedOffline)
	assert.True(t, res.AuthRequired)
	assert.Zero(t, res.RetryCount)
	assert.Empty(t, f.clock.armed())

	f.gw.setRespond(succeed)
	retry := f.m.RetryFailedSaves(context.Background())
	assert.Equal(t, 1, retry.Saved)
}

func TestSave_ValidationRejectsWithoutQueueing(t *testing.T) {
	f := newFixture(t, newFakeGateway(succeed), true)

	tests := []struct {
		name    string
		payload domain.Payload
	}{
		{name: "nil", payload: nil},
		{name: "empty display name", payload: &domain.ProfilePayload{}},
		{name: "unknown status", payload: &domain.StatusPayload{Status: "Sleeping"}},
		{name: "bad account number", payload: &domain.PaymentPayload{BankName: "BCA", AccountName: "A", AccountNumber: "12ab"}},
		{name: "slot ends before start", payload: &domain.AvailabilityPayload{Slots: []domain.WeeklySlot{{Weekday: 1, Start: "18:00", End: "09:00"}}}},
		{name: "bad language", payload: &domain.SettingsPayload{Language: "fr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.m.Save(context.Background(), tt.payload, SaveOptions{Immediate: true})

			assert.False(t, res.Accepted())
			assert.Contains(t, res.Error, ErrInvalidPayload.Error())
		})
	}

	assert.Empty(t, f.m.GetPendingSaves())
	assert.Zero(t, f.gw.callCount())
}

func TestSave_NeverPanicsWithFailingGateway(t *testing.T) {
	f := newFixture(t, newFakeGateway(fail), true)

	payloads := []domain.Payload{
		profilePayload("Ayu"),
		statusPayload(),
		&domain.AvailabilityPayload{Slots: []domain.WeeklySlot{{Weekday: 0, Start: "09:00", End: "17:00"}}},
		paymentPayload(),
		&domain.SettingsPayload{Language: "id", Currency: "IDR", Timezone: "UTC"},
	}

	for _, p := range payloads {
		assert.NotPanics(t, func() {
			res := f.m.Save(context.Background(), p, SaveOptions{Immediate: true})
			assert.True(t, res.SavedOffline || res.Failed)
		})
	}

	assert.Equal(t, domain.OperationTypes, f.gw.callTypes())
	assert.Len(t, f.m.GetPendingSaves(), len(payloads))
}

func TestSave_CallerMutationDoesNotLeakIntoQueue(t *testing.T) {
	f := newFixture(t, newFakeGateway(succeed), false)
	p := profilePayload("Ayu")

	f.m.Save(context.Background(), p, SaveOptions{})
	p.DisplayName = "Changed"
	p.Languages[0] = "id"

	stored := f.m.GetPendingSaves()[0].Payload.(*domain.ProfilePayload)
	assert.Equal(t, "Ayu", stored.DisplayName)
	assert.Equal(t, "en", stored.Languages[0])
}

func TestManager_ReloadFromSameStore(t *testing.T) {
	store := kvstore.NewMemory()
	first := newFixtureWithStore(t, newFakeGateway(succeed), false, store)

	first.m.Save(context.Background(), profilePayload("Ayu"), SaveOptions{})
	first.m.Save(context.Background(), statusPayload(), SaveOptions{})
	first.m.Save(context.Background(), paymentPayload(), SaveOptions{})
	want := first.m.GetPendingSaves()
	first.m.Stop()

	second := newFixtureWithStore(t, newFakeGateway(succeed), false, store)
	got := second.m.GetPendingSaves()

	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Type, got[i].Type)
		assert.Equal(t, want[i].RetryCount, got[i].RetryCount)
		assert.Equal(t, want[i].Payload, got[i].Payload)
	}
}

func TestManager_StartDrainsRestoredQueue(t *testing.T) {
	store := kvstore.NewMemory()
	first := newFixtureWithStore(t, newFakeGateway(succeed), false, store)
	first.m.Save(context.Background(), statusPayload(), SaveOptions{})
	first.m.Stop()

	second := newFixtureWithStore(t, newFakeGateway(succeed), true, store)
	second.m.Start(context.Background())
	second.settle()

	assert.Zero(t, second.m.Len())
	assert.Equal(t, 1, second.gw.callCount())
}

func TestClearPendingSaves(t *testing.T) {
	f := newFixture(t, newFakeGateway(fail), true)

	f.m.Save(context.Background(), statusPayload(), SaveOptions{})
	f.m.Save(context.Background(), profilePayload("Ayu"), SaveOptions{})
	require.Len(t, f.clock.armed(), 2)

	n := f.m.ClearPendingSaves()

	assert.Equal(t, 2, n)
	assert.Empty(t, f.m.GetPendingSaves())
	assert.Empty(t, f.clock.armed())

	_, ok, err := f.store.GetItem(domain.DefaultStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDrain_InsertionOrderAndIsolation(t *testing.T) {
	var mu sync.Mutex
	failStatus := func(_ context.Context, opType domain.OperationType) error {
		mu.Lock()
		defer mu.Unlock()
		if opType == domain.OperationStatus {
			return errNetwork
		}
		return nil
	}
	f := newFixture(t, newFakeGateway(failStatus), false)

	f.m.Save(context.Background(), profilePayload("Ayu"), SaveOptions{})
	f.m.Save(context.Background(), statusPayload(), SaveOptions{})
	f.m.Save(context.Background(), paymentPayload(), SaveOptions{})

	res := f.m.RetryFailedSaves(context.Background())

	assert.Equal(t, domain.RetryResult{Attempted: 3, Saved: 2, Failed: 1, Remaining: 1}, res)
	assert.Equal(t, []domain.OperationType{domain.OperationProfile, domain.OperationStatus, domain.OperationPayment}, f.gw.callTypes())
}

func TestDrain_SingleFlightAndCoalescing(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 8)
	blocking := func(context.Context, domain.OperationType) error {
		entered <- struct{}{}
		<-release
		return nil
	}
	f := newFixture(t, newFakeGateway(blocking), false)

	f.m.Save(context.Background(), statusPayload(), SaveOptions{})
	f.m.Save(context.Background(), profilePayload("Ayu"), SaveOptions{})
	f.sw.SetOnline(true)

	f.m.RequestDrain("online")
	<-entered

	f.m.RequestDrain("visible")
	assert.True(t, f.m.RetryFailedSaves(context.Background()).Skipped)

	// отдельная немедленная попытка новой записи идёт мимо прохода
	done := make(chan domain.SaveResult, 1)
	go func() { done <- f.m.Save(context.Background(), paymentPayload(), SaveOptions{Immediate: true}) }()
	<-entered

	close(release)
	assert.True(t, (<-done).Success)
	f.settle()

	assert.Zero(t, f.m.Len())
	assert.Equal(t, 3, f.gw.callCount())
	assert.False(t, f.gw.overlapped)
}

func TestDrain_TimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	hang := func(context.Context, domain.OperationType) error {
		<-release
		return nil
	}
	f := newFixture(t, newFakeGateway(hang), true, WithAttemptTimeout(20*time.Millisecond))

	res := f.m.Save(context.Background(), statusPayload(), SaveOptions{})

	assert.True(t, res.SavedOffline)
	assert.Equal(t, 1, res.RetryCount)
	assert.Contains(t, res.Error, ErrAttemptTimeout.Error())

	// зависшая попытка ещё идёт: запись нельзя пробовать второй раз
	f.clock.Advance(time.Second)
	f.settle()
	assert.Equal(t, 1, f.gw.callCount())

	close(release)
	assert.Eventually(t, func() bool { return f.m.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, f.gw.overlapped)
}

func TestDrain_LateFailureRearmsBackoff(t *testing.T) {
	release := make(chan struct{})
	hang := func(context.Context, domain.OperationType) error {
		<-release
		return errNetwork
	}
	f := newFixture(t, newFakeGateway(hang), true, WithAttemptTimeout(20*time.Millisecond))

	res := f.m.Save(context.Background(), statusPayload(), SaveOptions{})
	require.True(t, res.SavedOffline)
	require.Equal(t, 1, res.RetryCount)
	require.Equal(t, []time.Duration{time.Second}, f.clock.armed())

	// таймер срабатывает, пока вызов висит, и пропускается
	f.clock.Advance(time.Second)
	f.settle()
	assert.Equal(t, 1, f.gw.callCount())
	assert.Empty(t, f.clock.armed())

	f.gw.setRespond(succeed)
	close(release)

	// поздняя ошибка не тратит попытку, но снова ставит таймер
	assert.Eventually(t, func() bool { return len(f.clock.armed()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []time.Duration{2 * time.Second}, f.clock.armed())
	assert.Equal(t, 1, f.m.GetPendingSaves()[0].RetryCount)

	f.clock.Advance(2 * time.Second)
	f.settle()
	assert.Eventually(t, func() bool { return f.m.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, f.gw.callCount())
	assert.False(t, f.gw.overlapped)
}

func TestSave_CallerCancellationDoesNotAbortAttempt(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{name: "without attempt timeout", timeout: 0},
		{name: "with attempt timeout", timeout: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			var mu sync.Mutex
			var seen error
			wait := func(ctx context.Context, _ domain.OperationType) error {
				select {
				case <-ctx.Done():
					mu.Lock()
					seen = ctx.Err()
					mu.Unlock()
					return ctx.Err()
				case <-release:
					return nil
				}
			}
			f := newFixture(t, newFakeGateway(wait), true, WithAttemptTimeout(tt.timeout))

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
				time.Sleep(20 * time.Millisecond)
				close(release)
			}()

			res := f.m.Save(ctx, statusPayload(), SaveOptions{Immediate: true})

			assert.True(t, res.Success, res.Error)
			assert.Zero(t, res.RetryCount)
			assert.Zero(t, f.m.Len())
			assert.Equal(t, 1, f.gw.callCount())

			mu.Lock()
			defer mu.Unlock()
			assert.NoError(t, seen)
		})
	}
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, newFakeGateway(succeed), false)

	updates, unsubscribe := f.m.Subscribe()
	defer unsubscribe()

	assert.Equal(t, domain.QueueSnapshot{}, <-updates)

	f.m.Save(context.Background(), statusPayload(), SaveOptions{})
	f.m.Save(context.Background(), statusPayload(), SaveOptions{})

	// медленный подписчик видит только последнюю сводку
	assert.Equal(t, domain.QueueSnapshot{Pending: 2}, <-updates)

	f.m.ClearPendingSaves()
	assert.Equal(t, domain.QueueSnapshot{}, <-updates)
}
