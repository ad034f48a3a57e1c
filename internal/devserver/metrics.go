package devserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the backend's domain metrics. A nil *Metrics records
// nothing.
type Metrics struct {
	votes       *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	wsClients   prometheus.Gauge
	suggestions prometheus.Counter
}

// NewMetrics registers the backend metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		votes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qaglue",
			Subsystem: "devserver",
			Name:      "votes_total",
			Help:      "Votes stored, by item type and value",
		}, []string{"item_type", "value"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qaglue",
			Subsystem: "devserver",
			Name:      "votes_rejected_total",
			Help:      "Votes refused, by reason",
		}, []string{"reason"}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "qaglue",
			Subsystem: "devserver",
			Name:      "realtime_clients",
			Help:      "Connected realtime pages",
		}),
		suggestions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qaglue",
			Subsystem: "devserver",
			Name:      "tag_suggestions_total",
			Help:      "Tag suggestion requests served",
		}),
	}
}

func (m *Metrics) voteStored(itemType, value string) {
	if m != nil {
		m.votes.WithLabelValues(itemType, value).Inc()
	}
}

func (m *Metrics) voteRejected(reason string) {
	if m != nil {
		m.rejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) clientConnected() {
	if m != nil {
		m.wsClients.Inc()
	}
}

func (m *Metrics) clientDisconnected() {
	if m != nil {
		m.wsClients.Dec()
	}
}

func (m *Metrics) suggestionServed() {
	if m != nil {
		m.suggestions.Inc()
	}
}
