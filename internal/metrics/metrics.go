// Package metrics собирает счетчики приложения для Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autoswap"

// Metrics набор счетчиков с собственным реестром
type Metrics struct {
	registry *prometheus.Registry

	SwapRequests      *prometheus.CounterVec
	SwapTransitions   *prometheus.CounterVec
	ConversationOpens *prometheus.CounterVec
	MessagesSent      prometheus.Counter
	Reports           *prometheus.CounterVec
	Uploads           *prometheus.CounterVec
}

// New регистрирует счетчики в новом реестре
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SwapRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_requests_created_total",
			Help:      "Created swap requests by request type.",
		}, []string{"type"}),
		SwapTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_transitions_total",
			Help:      "Swap request transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		ConversationOpens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_opens_total",
			Help:      "Open-or-append calls split by whether a conversation was created.",
		}, []string{"created"}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages appended to conversations.",
		}),
		Reports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "User reports by outcome.",
		}, []string{"outcome"}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Object storage uploads by outcome.",
		}, []string{"outcome"}),
	}
}

// Registry реестр для тестов и экспорта
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Outcome метка результата операции
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
