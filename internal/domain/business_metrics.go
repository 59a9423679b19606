package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает бизнесовое событие, которое сохраняется для последующего анализа.
type BusinessMetric struct {
	ID         string
	Event      string
	ChatID     *int64
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventSessionCreated фиксирует первое обращение чата.
	BusinessMetricEventSessionCreated = "session_created"
	// BusinessMetricEventLocationSet фиксирует успешную установку местоположения.
	BusinessMetricEventLocationSet = "location_set"
	// BusinessMetricEventListRequested фиксирует разовый запрос списка.
	BusinessMetricEventListRequested = "list_requested"
	// BusinessMetricEventMonitorStarted фиксирует запуск мониторинга.
	BusinessMetricEventMonitorStarted = "monitor_started"
	// BusinessMetricEventMonitorExpired фиксирует истечение окна мониторинга.
	BusinessMetricEventMonitorExpired = "monitor_expired"
	// BusinessMetricEventMonitorStopped фиксирует ручную остановку мониторинга.
	BusinessMetricEventMonitorStopped = "monitor_stopped"
	// BusinessMetricEventSightingsNotified фиксирует отправку уведомлений о появлениях.
	BusinessMetricEventSightingsNotified = "sightings_notified"
)

// BusinessMetricRepo сохраняет бизнесовые события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}

// NopBusinessMetrics отбрасывает события, когда хранилище не настроено.
type NopBusinessMetrics struct{}

// RecordBusinessMetric ничего не делает.
func (NopBusinessMetrics) RecordBusinessMetric(context.Context, BusinessMetric) error { return nil }
