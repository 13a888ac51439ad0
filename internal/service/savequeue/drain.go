package savequeue

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/m04kA/SMC-SaveSync/internal/domain"
)

// RequestDrain запускает проход в фоне
// Если проход уже идёт, запрос поглощается: следующий запустит таймер или событие
func (m *Manager) RequestDrain(reason string) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.draining.Load() {
		m.mu.Unlock()
		m.log.Debug("savequeue: drain (%s) coalesced with running pass", reason)
		return
	}
	m.wg.Add(1)
	ctx := m.baseCtx
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.drain(ctx, reason, nil)
	}()
}

// drain один проход по снимку очереди в порядке добавления
// Одновременно идёт не больше одного прохода; false - проход уже шёл
// before выполняется, когда проход гарантированно наш
func (m *Manager) drain(ctx context.Context, reason string, before func()) (domain.RetryResult, bool) {
	if !m.draining.CompareAndSwap(false, true) {
		return domain.RetryResult{}, false
	}
	defer m.draining.Store(false)

	start := m.clock.Now()
	ctx, span := m.tracer.Start(ctx, "savequeue.drain", trace.WithAttributes(
		attribute.String("drain.reason", reason),
	))
	defer span.End()

	if before != nil {
		before()
	}

	// копия, чтобы записи, добавленные во время прохода, не сбивали обход
	m.mu.Lock()
	ids := make([]string, 0, len(m.queue))
	for _, op := range m.queue {
		ids = append(ids, op.ID)
	}
	m.mu.Unlock()

	var res domain.RetryResult
	for _, id := range ids {
		if reason != ReasonManual && !m.source.IsOnline() {
			m.log.InfoCtx(ctx, "savequeue: drain (%s) interrupted, connection lost", reason)
			break
		}

		if !m.claim(id) {
			continue
		}

		if err := m.limiter.Wait(ctx); err != nil {
			m.release(id)
			m.log.WarnCtx(ctx, "savequeue: drain (%s) stopped: %v", reason, err)
			break
		}

		out := m.attempt(ctx, id)
		if out.discarded {
			continue
		}
		res.Attempted++
		if out.saved {
			res.Saved++
		} else {
			res.Failed++
		}
	}

	res.Remaining = m.Len()
	span.SetAttributes(
		attribute.Int("drain.attempted", res.Attempted),
		attribute.Int("drain.saved", res.Saved),
		attribute.Int("drain.remaining", res.Remaining),
	)
	m.recorder.ObserveDrain(reason, m.clock.Now().Sub(start))

	if res.Attempted > 0 {
		m.log.InfoCtx(ctx, "savequeue: drain (%s) attempted=%d saved=%d failed=%d remaining=%d",
			reason, res.Attempted, res.Saved, res.Failed, res.Remaining)
	}

	return res, true
}

// claim помечает запись in-flight, если её можно пробовать
// Отменяет таймер повтора: проход пробует запись сейчас
func (m *Manager) claim(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	op := m.findLocked(id)
	if op == nil || !m.backoff.ShouldRetry(op) {
		return false
	}
	if _, busy := m.inFlight[id]; busy {
		return false
	}

	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
	m.inFlight[id] = struct{}{}
	return true
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.inFlight, id)
}

// resetExhausted обнуляет счётчик у записей, исчерпавших потолок
func (m *Manager) resetExhausted() {
	m.mu.Lock()
	reset := 0
	for _, op := range m.queue {
		if op.IsExhausted() {
			op.RetryCount = 0
			reset++
		}
	}
	if reset > 0 {
		m.persistLocked()
	}
	m.mu.Unlock()

	if reset > 0 {
		m.log.Info("savequeue: manual retry reset %d exhausted saves", reset)
		m.publish()
	}
}
