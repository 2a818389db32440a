package application

import (
	"time"

	"github.com/phishguard/risk-scoring/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	analyses  *prometheus.CounterVec
	failures  *prometheus.CounterVec
	fallbacks prometheus.Counter
	duration  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "phishguard_analyses_total",
			Help: "Total number of completed analyses",
		}, []string{"category", "source"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "phishguard_analysis_failures_total",
			Help: "Total number of failed analyses by failure kind",
		}, []string{"kind"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phishguard_strategy_fallbacks_total",
			Help: "Total number of delegate failures answered by the fallback strategy",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "phishguard_analysis_duration_seconds",
			Help:    "Time spent analyzing one input",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.analyses, m.failures, m.fallbacks, m.duration)
	return m
}

func (m *Metrics) observe(result domain.ClassifiedResult, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(string(domain.FailureKindOf(err))).Inc()
		return
	}
	m.analyses.WithLabelValues(string(result.Category), string(result.Source)).Inc()
}

// failure counts an item that never reached the pipeline
func (m *Metrics) failure(err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(domain.FailureKindOf(err))).Inc()
}

func (m *Metrics) fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}
