// Package metrics содержит Prometheus-метрики сервиса аренды.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics хранит коллекторы, используемые в сервисе.
type Metrics struct {
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
	BotUpdates           *prometheus.CounterVec
	WizardTransitions    *prometheus.CounterVec
	WizardRejections     *prometheus.CounterVec
	RentalsFinalized     *prometheus.CounterVec
	UncorrelatedPayments prometheus.Counter
	NotifierFailures     *prometheus.CounterVec
	Errors               *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry создаёт и регистрирует синглтон метрик с указанным пространством имён.
// Повторные вызовы возвращают уже созданный экземпляр.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method and status.",
			}, []string{"method", "status"}),
			HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			BotUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bot_updates_total",
				Help:      "Total bot updates processed by type.",
			}, []string{"type"}),
			WizardTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_transitions_total",
				Help:      "Total accepted wizard answers by state.",
			}, []string{"state"}),
			WizardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wizard_rejections_total",
				Help:      "Total rejected wizard answers by state.",
			}, []string{"state"}),
			RentalsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rentals_finalized_total",
				Help:      "Total rentals created by origin and payment method.",
			}, []string{"origin", "payment"}),
			UncorrelatedPayments: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uncorrelated_payments_total",
				Help:      "Total payment confirmations without a pending rental.",
			}),
			NotifierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifier_failures_total",
				Help:      "Total failed channel publications by action.",
			}, []string{"action"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPDuration,
			metricsInstance.BotUpdates,
			metricsInstance.WizardTransitions,
			metricsInstance.WizardRejections,
			metricsInstance.RentalsFinalized,
			metricsInstance.UncorrelatedPayments,
			metricsInstance.NotifierFailures,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
