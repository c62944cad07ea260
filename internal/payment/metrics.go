package payment

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeReconciled = "reconciled"
	outcomeUnchanged  = "unchanged"
	outcomeUnhandled  = "unhandled"
	outcomeUndecoded  = "undecoded"
	outcomeRejected   = "rejected"
	outcomeError      = "error"
)

type Metrics struct {
	IntentsCreated *prometheus.CounterVec
	WebhookEvents  *prometheus.CounterVec
}

// NewMetrics registers the counters on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IntentsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_intents_created_total",
				Help: "Payment intents created with the provider",
			},
			[]string{"currency"},
		),
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Provider webhook events by type and handling outcome",
			},
			[]string{"type", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.IntentsCreated, m.WebhookEvents)
	}
	return m
}

func (m *Metrics) intentCreated(currency string) {
	if m == nil {
		return
	}
	m.IntentsCreated.WithLabelValues(currency).Inc()
}

func (m *Metrics) webhook(eventType, outcome string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}
