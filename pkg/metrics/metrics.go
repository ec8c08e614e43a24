// Package metrics registra los contadores Prometheus del motor. Se exponen en /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MovementsAppendedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movements_appended_total",
		Help: "Movimientos agregados al ledger por tipo",
	}, []string{"type"})

	MovementsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movements_rejected_total",
		Help: "Movimientos rechazados por motivo",
	}, []string{"reason"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_idempotent_replays_total",
		Help: "Comandos repetidos con la misma clave de idempotencia",
	})

	AppendLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_append_latency_seconds",
		Help:    "Latencia de append + recálculo del agregado",
		Buckets: prometheus.DefBuckets,
	})

	StatusCrossingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_status_crossings_total",
		Help: "Cambios de clase de stock por estado destino",
	}, []string{"to"})

	ReorderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reorder_transitions_total",
		Help: "Transiciones del flujo de reposición",
	}, []string{"action", "to"})

	ReorderConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reorder_concurrent_modifications_total",
		Help: "Escrituras rechazadas por versión desactualizada",
	})

	ReordersAutoGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reorders_auto_generated_total",
		Help: "Solicitudes creadas por la generación automática",
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Eventos entregados por publicador",
	}, []string{"publisher"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failed_total",
		Help: "Fallos de publicación por publicador",
	}, []string{"publisher"})

	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "background_tasks_total",
		Help: "Tareas en segundo plano por tipo y estado final",
	}, []string{"kind", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
