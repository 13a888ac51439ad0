package connectivity

import (
	"context"
	"sync"
	"time"
)

// Heartbeat периодически пингует бэкенд и переключает Switch
type Heartbeat struct {
	sw       *Switch
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeartbeat создает heartbeat поверх sw
func NewHeartbeat(sw *Switch, pinger Pinger, interval, timeout time.Duration, log Logger) *Heartbeat {
	return &Heartbeat{
		sw:       sw,
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
		log:      log,
	}
}

// Start делает первую проверку сразу и запускает периодические
// Повторный Start без Stop ничего не делает
func (h *Heartbeat) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		return
	}

	ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go h.run(ctx)
}

// Stop останавливает проверки и ждет завершения текущей
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	h.wg.Wait()
}

// Check одна проверка доступности
func (h *Heartbeat) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.pinger.Ping(ctx)
	online := err == nil

	if h.sw.SetOnline(online) {
		if online {
			h.log.Info("connectivity: backend reachable again")
		} else {
			h.log.Warn("connectivity: backend unreachable: %v", err)
		}
	}
	return online
}

func (h *Heartbeat) run(ctx context.Context) {
	defer h.wg.Done()

	h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
