package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики роутера. Экспортируются на /metrics.
var (
	// SessionsStarted — число session, взятых в обработку.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dirigent_sessions_started_total",
		Help: "Total number of sessions picked up for processing",
	})

	// SessionsCompleted — число завершённых session по исходу.
	SessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dirigent_sessions_completed_total",
		Help: "Total number of finished sessions by outcome",
	}, []string{"outcome"})

	// ReplansTotal — число перепланирований.
	ReplansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dirigent_replans_total",
		Help: "Total number of replan iterations",
	})

	// TasksDispatched — число задач, отправленных агентам.
	TasksDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dirigent_tasks_dispatched_total",
		Help: "Total number of tasks dispatched to agents",
	})

	// TasksFailed — число упавших задач, включая пропущенные из-за
	// зависимостей.
	TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dirigent_tasks_failed_total",
		Help: "Total number of failed tasks, including dependency skips",
	})

	// TaskDuration — длительность вызова агента.
	TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dirigent_task_duration_seconds",
		Help:    "Agent invocation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// OracleCalls — число вызовов оракула по стадиям.
	OracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dirigent_oracle_calls_total",
		Help: "Total number of oracle completions by stage",
	}, []string{"stage"})

	// OracleErrors — число ошибок оракула по стадиям.
	OracleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dirigent_oracle_errors_total",
		Help: "Total number of oracle errors by stage",
	}, []string{"stage"})
)
