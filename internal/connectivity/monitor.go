package connectivity

import (
	"context"
	"sync"
	"time"
)

// Monitor переводит события связи в запросы прохода очереди
type Monitor struct {
	source   Source
	drainer  Drainer
	interval time.Duration
	log      Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewMonitor создает монитор
// interval период страховочного таймера
func NewMonitor(source Source, drainer Drainer, interval time.Duration, log Logger) *Monitor {
	return &Monitor{
		source:   source,
		drainer:  drainer,
		interval: interval,
		log:      log,
	}
}

// Start подписывается на события и запускает таймер
// Повторный Start без Stop ничего не делает
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}

	events, unsubscribe := m.source.Subscribe()
	ctx, m.cancel = context.WithCancel(ctx)
	m.unsubscribe = unsubscribe

	m.wg.Add(1)
	go m.run(ctx, events)
}

// Stop отписывается от событий и останавливает таймер
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, unsubscribe := m.cancel, m.unsubscribe
	m.cancel, m.unsubscribe = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	unsubscribe()
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context, events <-chan Event) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.handle(ev)
		case <-ticker.C:
			if m.source.IsOnline() && m.drainer.HasPending() {
				m.drainer.RequestDrain(ReasonPeriodic)
			}
		}
	}
}

func (m *Monitor) handle(ev Event) {
	switch ev {
	case EventOnline:
		m.log.Info("connectivity: online, draining save queue")
		m.drainer.RequestDrain(ReasonOnline)
	case EventOffline:
		m.log.Info("connectivity: offline, saves will be queued")
	case EventBecameVisible:
		if m.source.IsOnline() && m.drainer.HasPending() {
			m.drainer.RequestDrain(ReasonVisible)
		}
	}
}
