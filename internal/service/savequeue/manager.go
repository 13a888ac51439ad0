// Package savequeue очередь сохранений дашборда поставщика: запись сразу
// попадает в локальный журнал, отправляется на бэкенд при наличии связи и
// повторяется с экспоненциальной задержкой до потолка попыток.
package savequeue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/m04kA/SMC-SaveSync/internal/connectivity"
	"github.com/m04kA/SMC-SaveSync/internal/domain"
	"github.com/m04kA/SMC-SaveSync/internal/service/gateway"
)

const tracerName = "github.com/m04kA/SMC-SaveSync/internal/service/savequeue"

// SaveOptions параметры одного сохранения
type SaveOptions struct {
	// Immediate синхронная первая попытка даже при известном offline
	Immediate bool
	// Critical то же, что Immediate (важные изменения: выплаты, статус)
	Critical bool
	// MaxRetries потолок попыток, <= 0 - значение менеджера
	MaxRetries int
}

// ManagerOption настройка менеджера
type ManagerOption func(*Manager)

// WithClock подменяет источник времени и таймеров
func WithClock(c Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// WithBackoff задаёт политику задержек
func WithBackoff(b Backoff) ManagerOption {
	return func(m *Manager) { m.backoff = b }
}

// WithMaxRetries потолок попыток по умолчанию
func WithMaxRetries(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxRetries = n
		}
	}
}

// WithInterRecordDelay пауза между попытками внутри прохода, 0 - без паузы
func WithInterRecordDelay(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interRecordDelay = d }
}

// WithAttemptTimeout таймаут одной попытки, 0 - без таймаута
func WithAttemptTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.attemptTimeout = d }
}

// WithDrainInterval период страховочного прохода
func WithDrainInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.drainInterval = d
		}
	}
}

// WithRecorder метрики
func WithRecorder(r Recorder) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithTracerProvider провайдер трейсов (по умолчанию глобальный)
func WithTracerProvider(tp trace.TracerProvider) ManagerOption {
	return func(m *Manager) { m.tracer = tp.Tracer(tracerName) }
}

// Manager менеджер сохранений
// Очередь и журнал меняются только его методами
type Manager struct {
	gateway Gateway
	journal Journal
	source  connectivity.Source
	log     Logger

	clock            Clock
	backoff          Backoff
	maxRetries       int
	interRecordDelay time.Duration
	attemptTimeout   time.Duration
	drainInterval    time.Duration
	recorder         Recorder
	tracer           trace.Tracer
	validate         *validator.Validate
	limiter          *rate.Limiter
	monitor          *connectivity.Monitor

	mu       sync.Mutex
	queue    []*domain.Operation
	inFlight map[string]struct{}
	timers   map[string]Timer
	subs     map[int]chan domain.QueueSnapshot
	nextSub  int
	baseCtx  context.Context
	started  bool
	stopped  bool

	draining atomic.Bool
	wg       sync.WaitGroup
}

// NewManager создает менеджер и поднимает очередь из журнала
func NewManager(gw Gateway, journal Journal, source connectivity.Source, log Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		gateway:          gw,
		journal:          journal,
		source:           source,
		log:              log,
		clock:            systemClock{},
		backoff:          DefaultBackoff(),
		maxRetries:       domain.DefaultMaxRetries,
		interRecordDelay: domain.DefaultInterRecordDelay,
		attemptTimeout:   domain.DefaultAttemptTimeout,
		drainInterval:    domain.DefaultDrainInterval,
		recorder:         nopRecorder{},
		tracer:           otel.Tracer(tracerName),
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		inFlight:         make(map[string]struct{}),
		timers:           make(map[string]Timer),
		subs:             make(map[int]chan domain.QueueSnapshot),
		baseCtx:          context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}

	limit := rate.Inf
	if m.interRecordDelay > 0 {
		limit = rate.Every(m.interRecordDelay)
	}
	m.limiter = rate.NewLimiter(limit, 1)
	m.monitor = connectivity.NewMonitor(source, m, m.drainInterval, log)

	m.queue = journal.Load()
	if len(m.queue) > 0 {
		m.log.Info("savequeue: restored %d pending saves", len(m.queue))
	}
	m.publish()

	return m
}

// Start подписывается на события связи и, если есть связь и работа, сразу разбирает очередь
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.stopped = false
	m.baseCtx = context.WithoutCancel(ctx)
	m.mu.Unlock()

	m.monitor.Start(ctx)

	if m.source.IsOnline() && m.HasPending() {
		m.RequestDrain(ReasonStartup)
	}
}

// Stop отписывается от событий, отменяет таймеры повторов и ждёт фоновые попытки
// Начатые вызовы бэкенда не прерываются
func (m *Manager) Stop() {
	m.monitor.Stop()

	m.mu.Lock()
	m.stopped = true
	m.started = false
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// Save ставит изменение в очередь и, если есть связь (или запрошено
// Immediate/Critical), сразу пытается его отправить
// Никогда не паникует и не возвращает ошибку: всё описано в результате
func (m *Manager) Save(ctx context.Context, payload domain.Payload, opts SaveOptions) domain.SaveResult {
	if err := m.validatePayload(payload); err != nil {
		opType := "unknown"
		if payload != nil {
			opType = string(payload.OperationType())
		}
		m.log.Warn("savequeue: Save - rejected %s payload: %v", opType, err)
		m.recorder.ObserveSave(opType, OutcomeRejected)
		return domain.SaveResult{Error: err.Error()}
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = m.maxRetries
	}

	op, err := domain.NewOperation(payload, maxRetries, m.clock.Now())
	if err != nil {
		m.recorder.ObserveSave(string(payload.OperationType()), OutcomeRejected)
		return domain.SaveResult{Error: err.Error()}
	}
	// вызывающий может дальше менять свой payload
	owned := op.Clone()
	op = &owned

	attemptNow := opts.Immediate || opts.Critical || m.source.IsOnline()

	m.mu.Lock()
	m.queue = append(m.queue, op)
	if attemptNow {
		m.inFlight[op.ID] = struct{}{}
	}
	m.persistLocked()
	m.mu.Unlock()
	m.publish()

	if !attemptNow {
		m.log.Info("savequeue: Save - offline, queued %s %s", op.Type, op.ID)
		m.recorder.ObserveSave(string(op.Type), OutcomeQueued)
		return domain.SaveResult{OperationID: op.ID, SavedOffline: true}
	}

	out := m.attempt(ctx, op.ID)
	result := out.saveResult(op.ID)

	switch {
	case result.Success:
		m.recorder.ObserveSave(string(op.Type), OutcomeSaved)
	case result.Failed:
		m.recorder.ObserveSave(string(op.Type), OutcomeFailed)
	case result.AuthRequired:
		m.recorder.ObserveSave(string(op.Type), OutcomeAuthRequired)
	default:
		m.recorder.ObserveSave(string(op.Type), OutcomeQueued)
	}

	return result
}

// RetryFailedSaves ручной повтор: обнуляет счётчик у исчерпавших потолок и
// синхронно разбирает всю очередь, даже если связь считается потерянной
// Если проход уже идёт, возвращает Skipped
func (m *Manager) RetryFailedSaves(ctx context.Context) domain.RetryResult {
	res, ran := m.drain(ctx, ReasonManual, m.resetExhausted)
	if !ran {
		m.log.Info("savequeue: RetryFailedSaves - drain already running, skipped")
		res.Skipped = true
		res.Remaining = m.Len()
	}
	return res
}

// GetPendingSaves копия очереди в порядке добавления, включая исчерпавшие потолок
func (m *Manager) GetPendingSaves() []domain.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Operation, 0, len(m.queue))
	for _, op := range m.queue {
		out = append(out, op.Clone())
	}
	return out
}

// Len размер очереди
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.queue)
}

// HasPending есть ли записи, которые ещё можно повторять автоматически
func (m *Manager) HasPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range m.queue {
		if op.CanRetry() {
			return true
		}
	}
	return false
}

// ClearPendingSaves безусловно удаляет все записи из памяти и журнала
// Возвращает число удалённых; подтверждение у пользователя - забота вызывающего
func (m *Manager) ClearPendingSaves() int {
	m.mu.Lock()
	n := len(m.queue)
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.queue = nil
	if err := m.journal.Clear(); err != nil {
		m.log.Error("savequeue: ClearPendingSaves - clear journal: %v", err)
	}
	m.mu.Unlock()

	m.log.Warn("savequeue: ClearPendingSaves - discarded %d pending saves", n)
	m.publish()
	return n
}

func (m *Manager) validatePayload(p domain.Payload) error {
	if p == nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, domain.ErrNilPayload)
	}
	if !p.OperationType().IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, domain.ErrUnknownOperationType)
	}
	if err := m.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if v, ok := p.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	return nil
}

// attemptOutcome итог одной попытки
type attemptOutcome struct {
	saved        bool
	authRequired bool
	exhausted    bool
	discarded    bool
	retryCount   int
	err          error
}

func (o attemptOutcome) saveResult(id string) domain.SaveResult {
	res := domain.SaveResult{OperationID: id, RetryCount: o.retryCount}
	if o.err != nil {
		res.Error = o.err.Error()
	}

	switch {
	case o.saved:
		res.Success = true
	case o.discarded:
		res.Error = ErrDiscarded.Error()
	case o.authRequired:
		res.SavedOffline = true
		res.AuthRequired = true
	case o.exhausted:
		res.Failed = true
	default:
		res.SavedOffline = true
	}
	return res
}

// attempt одна попытка отправить запись id
// Вызывающий заранее помечает id как in-flight
func (m *Manager) attempt(ctx context.Context, id string) attemptOutcome {
	m.mu.Lock()
	op := m.findLocked(id)
	if op == nil {
		delete(m.inFlight, id)
		m.mu.Unlock()
		return attemptOutcome{discarded: true}
	}
	snapshot := op.Clone()
	now := m.clock.Now()
	op.LastAttemptAt = &now
	m.mu.Unlock()

	// начатый вызов бэкенда доводится до конца, даже если вызывающий ушёл
	ctx = context.WithoutCancel(ctx)
	ctx, span := m.tracer.Start(ctx, "savequeue.attempt", trace.WithAttributes(
		attribute.String("save.operation_id", id),
		attribute.String("save.type", string(snapshot.Type)),
		attribute.Int("save.retry_count", snapshot.RetryCount),
	))
	defer span.End()

	late, err := m.call(ctx, &snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	out := m.complete(ctx, id, snapshot.Type, err, late == nil)
	if late != nil {
		go m.awaitAbandoned(id, late)
	}
	return out
}

// call вызывает бэкенд с таймаутом
// Если таймаут истёк, возвращает канал, в который придёт поздний результат
func (m *Manager) call(ctx context.Context, op *domain.Operation) (<-chan error, error) {
	if m.attemptTimeout <= 0 {
		return nil, m.dispatch(ctx, op)
	}

	tctx, cancel := context.WithTimeout(ctx, m.attemptTimeout)
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- m.dispatch(tctx, op)
	}()

	select {
	case err := <-done:
		return nil, err
	case <-tctx.Done():
		if !errors.Is(tctx.Err(), context.DeadlineExceeded) {
			// отмена родителя не таймаут: ждём настоящий итог вызова
			return nil, <-done
		}
		return done, fmt.Errorf("%w after %s: %v", ErrAttemptTimeout, m.attemptTimeout, tctx.Err())
	}
}

func (m *Manager) dispatch(ctx context.Context, op *domain.Operation) error {
	switch p := op.Payload.(type) {
	case *domain.ProfilePayload:
		return m.gateway.SaveProfile(ctx, op.IdempotencyKey, p)
	case *domain.StatusPayload:
		return m.gateway.SaveStatus(ctx, op.IdempotencyKey, p)
	case *domain.AvailabilityPayload:
		return m.gateway.SaveAvailability(ctx, op.IdempotencyKey, p)
	case *domain.PaymentPayload:
		return m.gateway.SavePayment(ctx, op.IdempotencyKey, p)
	case *domain.SettingsPayload:
		return m.gateway.SaveSettings(ctx, op.IdempotencyKey, p)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedPayload, p)
	}
}

// complete применяет итог попытки к очереди
// release=false оставляет запись in-flight до прихода позднего результата
func (m *Manager) complete(ctx context.Context, id string, opType domain.OperationType, err error, release bool) attemptOutcome {
	var out attemptOutcome
	result := ResultSuccess

	m.mu.Lock()
	if release {
		delete(m.inFlight, id)
	}

	idx := m.indexLocked(id)
	switch {
	case idx < 0:
		// очередь очистили во время попытки
		out = attemptOutcome{saved: err == nil, discarded: err != nil, err: err}
		if err != nil {
			result = ResultError
		}

	case err == nil:
		m.removeLocked(idx)
		m.persistLocked()
		out.saved = true

	case errors.Is(err, gateway.ErrUnauthenticated):
		// без входа повтор не поможет, бюджет попыток не тратим
		op := m.queue[idx]
		op.LastError = err.Error()
		m.persistLocked()
		out = attemptOutcome{authRequired: true, retryCount: op.RetryCount, err: err}
		result = ResultAuth

	default:
		op := m.queue[idx]
		delay := m.backoff.NextDelay(op.RetryCount)
		op.RetryCount++
		op.LastError = err.Error()
		m.persistLocked()
		out = attemptOutcome{exhausted: op.IsExhausted(), retryCount: op.RetryCount, err: err}
		if !out.exhausted {
			m.scheduleLocked(id, delay)
		}
		result = ResultError
		if errors.Is(err, ErrAttemptTimeout) {
			result = ResultTimeout
		}
	}
	m.mu.Unlock()

	m.recorder.ObserveAttempt(string(opType), result)
	switch {
	case out.saved:
		m.log.InfoCtx(ctx, "savequeue: saved %s %s", opType, id)
	case out.authRequired:
		m.log.WarnCtx(ctx, "savequeue: %s %s needs sign-in, kept in queue", opType, id)
	case out.exhausted:
		m.log.ErrorCtx(ctx, "savequeue: %s %s failed after %d attempts: %v", opType, id, out.retryCount, err)
	case out.discarded:
		m.log.WarnCtx(ctx, "savequeue: %s %s discarded during attempt", opType, id)
	default:
		m.log.WarnCtx(ctx, "savequeue: %s %s attempt %d failed: %v", opType, id, out.retryCount, err)
	}

	m.publish()
	return out
}

// awaitAbandoned снимает in-flight, когда зависший вызов всё же завершился
func (m *Manager) awaitAbandoned(id string, late <-chan error) {
	err := <-late

	m.mu.Lock()
	delete(m.inFlight, id)
	saved := false
	if idx := m.indexLocked(id); idx >= 0 {
		op := m.queue[idx]
		switch {
		case err == nil:
			m.removeLocked(idx)
			m.persistLocked()
			saved = true
		case op.CanRetry():
			// таймер повтора мог сработать, пока вызов висел, и был пропущен
			if _, armed := m.timers[id]; !armed {
				m.scheduleLocked(id, m.backoff.NextDelay(op.RetryCount))
			}
		}
	}
	m.mu.Unlock()

	if saved {
		m.log.Info("savequeue: late success for %s, removed from queue", id)
		m.publish()
	}
}

// scheduleLocked взводит таймер повтора одной записи
func (m *Manager) scheduleLocked(id string, delay time.Duration) {
	if m.stopped {
		return
	}
	if t, ok := m.timers[id]; ok {
		t.Stop()
	}
	m.timers[id] = m.clock.AfterFunc(delay, func() { m.onTimer(id) })
	m.log.Debug("savequeue: retry of %s scheduled in %s", id, delay)
}

// onTimer повтор по таймеру; без связи ничего не делает (проход запустит событие online)
func (m *Manager) onTimer(id string) {
	m.mu.Lock()
	delete(m.timers, id)

	if m.stopped || !m.source.IsOnline() {
		m.mu.Unlock()
		return
	}

	op := m.findLocked(id)
	if op == nil || op.IsExhausted() {
		m.mu.Unlock()
		return
	}
	if _, busy := m.inFlight[id]; busy {
		m.mu.Unlock()
		return
	}

	m.inFlight[id] = struct{}{}
	m.wg.Add(1)
	ctx := m.baseCtx
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.attempt(ctx, id)
	}()
}

// persistLocked пишет снимок в журнал; ошибка журнала не фатальна
func (m *Manager) persistLocked() {
	if err := m.journal.Persist(m.queue); err != nil {
		m.log.Error("savequeue: persist %d records: %v", len(m.queue), err)
	}
}

func (m *Manager) findLocked(id string) *domain.Operation {
	if idx := m.indexLocked(id); idx >= 0 {
		return m.queue[idx]
	}
	return nil
}

func (m *Manager) indexLocked(id string) int {
	for i, op := range m.queue {
		if op.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) removeLocked(idx int) {
	id := m.queue[idx].ID
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
}
