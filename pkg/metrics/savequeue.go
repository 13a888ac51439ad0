package metrics

import "time"

// SaveQueueRecorder адаптер метрик для менеджера сохранений
type SaveQueueRecorder struct {
	m *Metrics
}

// NewSaveQueueRecorder создает адаптер
func NewSaveQueueRecorder(m *Metrics) *SaveQueueRecorder {
	return &SaveQueueRecorder{m: m}
}

func (r *SaveQueueRecorder) ObserveSave(opType string, outcome string) {
	r.m.SavesTotal.WithLabelValues(opType, outcome).Inc()
}

func (r *SaveQueueRecorder) ObserveAttempt(opType string, result string) {
	r.m.SaveAttemptsTotal.WithLabelValues(opType, result).Inc()
}

func (r *SaveQueueRecorder) ObserveDrain(reason string, duration time.Duration) {
	r.m.DrainPassesTotal.WithLabelValues(reason).Inc()
	r.m.DrainDuration.Observe(duration.Seconds())
}

func (r *SaveQueueRecorder) SetQueueSize(pending int, failed int) {
	r.m.PendingSaves.Set(float64(pending))
	r.m.FailedTerminalSave.Set(float64(failed))
}
