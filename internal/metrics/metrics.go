package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the wallet counters. A nil *Metrics is a no-op so tests can
// pass nothing.
type Metrics struct {
	topUpIntentsTotal  prometheus.Counter
	gatewayEventsTotal *prometheus.CounterVec
	transactionsTotal  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		topUpIntentsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wallet",
				Name:      "topup_intents_total",
				Help:      "Total payment intents created for top-ups.",
			},
		),
		gatewayEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wallet",
				Name:      "gateway_events_total",
				Help:      "Total webhook events partitioned by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		transactionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wallet",
				Name:      "transactions_total",
				Help:      "Total ledger transactions partitioned by kind.",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) TopUpIntentCreated() {
	if m == nil {
		return
	}
	m.topUpIntentsTotal.Inc()
}

func (m *Metrics) GatewayEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.gatewayEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) TransactionApplied(kind string) {
	if m == nil {
		return
	}
	m.transactionsTotal.WithLabelValues(kind).Inc()
}
