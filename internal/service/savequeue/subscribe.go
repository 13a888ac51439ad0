package savequeue

import "github.com/m04kA/SMC-SaveSync/internal/domain"

// Subscribe подписка на сводку очереди после каждого изменения
// Сразу отдаёт текущую сводку; медленный подписчик получает только последнюю
func (m *Manager) Subscribe() (<-chan domain.QueueSnapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan domain.QueueSnapshot, 1)
	ch <- m.snapshotLocked()
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

// Snapshot текущая сводка очереди
func (m *Manager) Snapshot() domain.QueueSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() domain.QueueSnapshot {
	var s domain.QueueSnapshot
	for _, op := range m.queue {
		if op.IsExhausted() {
			s.Failed++
		} else {
			s.Pending++
		}
	}
	return s
}

// publish рассылает сводку подписчикам и обновляет метрики
func (m *Manager) publish() {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.snapshotLocked()
	m.recorder.SetQueueSize(s.Pending, s.Failed)

	for _, ch := range m.subs {
		// вытесняем устаревшую сводку
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
