package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60},
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "status"})

	MonitorTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_ticks_total",
		Help: "Итоги обработки сессий мониторинга",
	}, []string{"outcome"})

	MonitorActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_active_sessions",
		Help: "Количество сессий с активным мониторингом",
	})

	SchedulerCycleSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_cycle_seconds",
		Help:    "Длительность цикла планировщика",
		Buckets: prometheus.DefBuckets,
	})

	SightingsEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sightings_evaluated_total",
		Help: "Количество оценённых появлений",
	})

	SightingsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sightings_dropped_total",
		Help: "Появления, не прошедшие фильтры",
	}, []string{"reason"})

	SightingsNotified = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sightings_notified_total",
		Help: "Появления, отправленные пользователям",
	})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_total",
		Help: "Обработанные команды бота",
	}, []string{"command"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
		MonitorTicks,
		MonitorActiveSessions,
		SchedulerCycleSeconds,
		SightingsEvaluated,
		SightingsDropped,
		SightingsNotified,
		CommandsTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}

// IncMonitorTick учитывает результат обработки одной сессии.
func IncMonitorTick(outcome string) {
	MonitorTicks.WithLabelValues(outcome).Inc()
}

// IncSightingDropped учитывает отброшенное появление.
func IncSightingDropped(reason string) {
	SightingsDropped.WithLabelValues(reason).Inc()
}

// AddSightingsEvaluated учитывает оценённые появления.
func AddSightingsEvaluated(n int) {
	if n > 0 {
		SightingsEvaluated.Add(float64(n))
	}
}

// AddSightingsNotified учитывает отправленные уведомления.
func AddSightingsNotified(n int) {
	if n > 0 {
		SightingsNotified.Add(float64(n))
	}
}

// IncCommand учитывает обработанную команду.
func IncCommand(command string) {
	if command == "" {
		command = "unknown"
	}
	CommandsTotal.WithLabelValues(command).Inc()
}
