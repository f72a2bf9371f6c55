package intake

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	attempts  *prometheus.CounterVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
}

// NewMetrics registers delivery metrics in registerer. Pass
// prometheus.NewRegistry() in tests.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cichain",
		Subsystem: "intake",
		Name:      "attempts_total",
		Help:      "Number of webhook POST attempts by outcome.",
	}, []string{"outcome"})

	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cichain",
		Subsystem: "intake",
		Name:      "delivered_total",
		Help:      "Number of webhooks accepted by the intake.",
	}, []string{"level"})

	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cichain",
		Subsystem: "intake",
		Name:      "failed_total",
		Help:      "Number of webhooks dropped after the last attempt.",
	}, []string{"level"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cichain",
		Subsystem: "intake",
		Name:      "delivery_duration_seconds",
		Help:      "Time spent delivering a webhook, retries included.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"level"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cichain",
		Subsystem: "intake",
		Name:      "in_flight",
		Help:      "Number of webhooks being delivered right now.",
	})

	registerer.MustRegister(attempts, delivered, failed, duration, inFlight)

	return &Metrics{
		attempts:  attempts,
		delivered: delivered,
		failed:    failed,
		duration:  duration,
		inFlight:  inFlight,
	}
}

const (
	outcomeSuccess   = "success"
	outcomeServer    = "server_error"
	outcomeRejected  = "rejected"
	outcomeTransport = "transport_error"
)
