package notification

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes send counters and latencies. Each Service gets its own
// instance so tests can use a private registry.
type Metrics struct {
	sent     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monthlyclub_emails_sent_total",
			Help: "Total number of email send attempts by kind and outcome.",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "monthlyclub_email_send_duration_seconds",
			Help:    "Latency of email provider calls, including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.sent, m.duration)
	}
	return m
}

func (m *Metrics) record(kind Kind, status Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := string(kind)
	if label == "" {
		label = string(KindCustom)
	}
	m.sent.WithLabelValues(label, string(status)).Inc()
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}
