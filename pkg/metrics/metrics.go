// Package metrics содержит prometheus-коллекторы сервиса
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор метрик сервиса
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Очередь сохранений
	SavesTotal         *prometheus.CounterVec
	SaveAttemptsTotal  *prometheus.CounterVec
	DrainPassesTotal   *prometheus.CounterVec
	DrainDuration      prometheus.Histogram
	PendingSaves       prometheus.Gauge
	FailedTerminalSave prometheus.Gauge

	// БД
	DBQueryDuration  *prometheus.HistogramVec
	DBOpenConns      prometheus.Gauge
	DBInUseConns     prometheus.Gauge
	DBIdleConns      prometheus.Gauge
	DBWaitCountTotal prometheus.Gauge
}

// New создает и регистрирует метрики в глобальном реестре
func New(serviceName string) *Metrics {
	return NewWithRegisterer(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegisterer создает метрики и регистрирует их в переданном реестре
// Отдельный реестр нужен тестам, чтобы не ловить duplicate registration
func NewWithRegisterer(serviceName string, reg prometheus.Registerer) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),

		SavesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "savequeue_saves_total",
			Help:        "Save requests by operation type and outcome",
			ConstLabels: constLabels,
		}, []string{"type", "outcome"}),
		SaveAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "savequeue_attempts_total",
			Help:        "Remote save attempts by operation type and result",
			ConstLabels: constLabels,
		}, []string{"type", "result"}),
		DrainPassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "savequeue_drain_passes_total",
			Help:        "Drain passes by trigger reason",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		DrainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "savequeue_drain_duration_seconds",
			Help:        "Duration of a drain pass",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		PendingSaves: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "savequeue_pending",
			Help:        "Operations waiting for sync",
			ConstLabels: constLabels,
		}),
		FailedTerminalSave: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "savequeue_failed_terminal",
			Help:        "Operations that exhausted their retries",
			ConstLabels: constLabels,
		}),

		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query duration",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),
		DBOpenConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_open_connections",
			Help:        "Open connections in the pool",
			ConstLabels: constLabels,
		}),
		DBInUseConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_in_use_connections",
			Help:        "Connections currently in use",
			ConstLabels: constLabels,
		}),
		DBIdleConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_idle_connections",
			Help:        "Idle connections in the pool",
			ConstLabels: constLabels,
		}),
		DBWaitCountTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_wait_count",
			Help:        "Total number of connections waited for",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SavesTotal,
		m.SaveAttemptsTotal,
		m.DrainPassesTotal,
		m.DrainDuration,
		m.PendingSaves,
		m.FailedTerminalSave,
		m.DBQueryDuration,
		m.DBOpenConns,
		m.DBInUseConns,
		m.DBIdleConns,
		m.DBWaitCountTotal,
	)

	return m
}
