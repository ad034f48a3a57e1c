package vote

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for vote traffic. A nil
// *Metrics records nothing.
type Metrics struct {
	clicks          *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	dropped         prometheus.Counter
	stale           prometheus.Counter
}

// NewMetrics creates the vote metrics and registers them with reg. A nil
// reg creates unregistered instruments.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		clicks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qaglue",
			Name:      "vote_clicks_total",
			Help:      "Vote control clicks by resulting direction",
		}, []string{"direction"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qaglue",
			Name:      "vote_requests_total",
			Help:      "Vote requests by outcome",
		}, []string{"outcome"}),
		requestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qaglue",
			Name:      "vote_request_duration_seconds",
			Help:      "Round-trip time of vote requests",
			Buckets:   prometheus.DefBuckets,
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qaglue",
			Name:      "vote_clicks_dropped_total",
			Help:      "Clicks dropped because a request for the target was in flight",
		}),
		stale: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "qaglue",
			Name:      "vote_responses_stale_total",
			Help:      "Responses discarded because a newer request was sent",
		}),
	}
}

func (m *Metrics) click(d Direction) {
	if m == nil {
		return
	}
	m.clicks.WithLabelValues(d.String()).Inc()
}

func (m *Metrics) request(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.requestDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) drop() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) staleResponse() {
	if m == nil {
		return
	}
	m.stale.Inc()
}
