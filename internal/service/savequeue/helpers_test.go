package savequeue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/m04kA/SMC-SaveSync/internal/connectivity"
	"github.com/m04kA/SMC-SaveSync/internal/domain"
	"github.com/m04kA/SMC-SaveSync/internal/infra/kvstore"
	"github.com/m04kA/SMC-SaveSync/internal/infra/storage/durablelog"
	"github.com/m04kA/SMC-SaveSync/pkg/logger"
)

var errNetwork = errors.New("network unreachable")

type gatewayCall struct {
	opType domain.OperationType
	key    string
}

// fakeGateway считает вызовы и ловит параллельные вызовы по одной записи
type fakeGateway struct {
	mu         sync.Mutex
	calls      []gatewayCall
	active     map[string]int
	overlapped bool
	respond    func(ctx context.Context, opType domain.OperationType) error
}

func newFakeGateway(respond func(ctx context.Context, opType domain.OperationType) error) *fakeGateway {
	return &fakeGateway{active: make(map[string]int), respond: respond}
}

func succeed(context.Context, domain.OperationType) error { return nil }

func fail(context.Context, domain.OperationType) error { return errNetwork }

func (g *fakeGateway) setRespond(f func(ctx context.Context, opType domain.OperationType) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.respond = f
}

func (g *fakeGateway) handle(ctx context.Context, opType domain.OperationType, key string) error {
	g.mu.Lock()
	g.calls = append(g.calls, gatewayCall{opType: opType, key: key})
	g.active[key]++
	if g.active[key] > 1 {
		g.overlapped = true
	}
	respond := g.respond
	g.mu.Unlock()

	err := respond(ctx, opType)

	g.mu.Lock()
	g.active[key]--
	g.mu.Unlock()
	return err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGateway) callTypes() []domain.OperationType {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.OperationType, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.opType)
	}
	return out
}

func (g *fakeGateway) SaveProfile(ctx context.Context, key string, _ *domain.ProfilePayload) error {
	return g.handle(ctx, domain.OperationProfile, key)
}

func (g *fakeGateway) SaveStatus(ctx context.Context, key string, _ *domain.StatusPayload) error {
	return g.handle(ctx, domain.OperationStatus, key)
}

func (g *fakeGateway) SaveAvailability(ctx context.Context, key string, _ *domain.AvailabilityPayload) error {
	return g.handle(ctx, domain.OperationAvailability, key)
}

func (g *fakeGateway) SavePayment(ctx context.Context, key string, _ *domain.PaymentPayload) error {
	return g.handle(ctx, domain.OperationPayment, key)
}

func (g *fakeGateway) SaveSettings(ctx context.Context, key string, _ *domain.SettingsPayload) error {
	return g.handle(ctx, domain.OperationSettings, key)
}

// fakeClock таймеры срабатывают только в Advance
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance двигает время и синхронно вызывает созревшие таймеры
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// armed задержки живых таймеров относительно текущего времени
func (c *fakeClock) armed() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.at.Sub(c.now))
		}
	}
	return out
}

type fixture struct {
	m       *Manager
	gw      *fakeGateway
	sw      *connectivity.Switch
	clock   *fakeClock
	store   *kvstore.Memory
	journal *durablelog.Log
}

func newFixture(t *testing.T, gw *fakeGateway, online bool, opts ...ManagerOption) *fixture {
	t.Helper()

	store := kvstore.NewMemory()
	return newFixtureWithStore(t, gw, online, store, opts...)
}

func newFixtureWithStore(t *testing.T, gw *fakeGateway, online bool, store *kvstore.Memory, opts ...ManagerOption) *fixture {
	t.Helper()

	clock := newFakeClock()
	sw := connectivity.NewSwitch(online)
	journal := durablelog.New(store, "", logger.Nop())

	base := []ManagerOption{
		WithClock(clock),
		WithInterRecordDelay(0),
		WithAttemptTimeout(0),
	}
	m := NewManager(gw, journal, sw, logger.Nop(), append(base, opts...)...)
	t.Cleanup(m.Stop)

	return &fixture{m: m, gw: gw, sw: sw, clock: clock, store: store, journal: journal}
}

// settle ждёт фоновые попытки, запущенные таймерами и RequestDrain
func (f *fixture) settle() {
	f.m.wg.Wait()
}

func statusPayload() *domain.StatusPayload {
	return &domain.StatusPayload{Status: domain.StatusAvailable}
}

func profilePayload(name string) *domain.ProfilePayload {
	return &domain.ProfilePayload{DisplayName: name, Languages: []string{"en"}}
}

func paymentPayload() *domain.PaymentPayload {
	return &domain.PaymentPayload{BankName: "BCA", AccountName: "Ayu Lestari", AccountNumber: "1234567890"}
}
