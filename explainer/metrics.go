package explainer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of an explainer. A nil *Metrics
// records nothing.
type Metrics struct {
	explanations         *prometheus.CounterVec
	modelCalls           prometheus.Counter
	modelRows            prometheus.Counter
	coalitions           prometheus.Histogram
	duration             prometheus.Histogram
	additivityViolations prometheus.Counter
	degenerateSolves     prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		explanations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernelshap_explanations_total",
				Help: "Explanations computed, by outcome",
			},
			[]string{"status"},
		),
		modelCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "kernelshap_model_calls_total",
			Help: "Calls into the explained model",
		}),
		modelRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "kernelshap_model_rows_total",
			Help: "Rows sent to the explained model",
		}),
		coalitions: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kernelshap_coalitions",
			Help:    "Coalitions evaluated per explanation, anchors included",
			Buckets: prometheus.ExponentialBuckets(2, 2, 14),
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kernelshap_explain_duration_seconds",
			Help:    "Wall time of one explanation",
			Buckets: prometheus.DefBuckets,
		}),
		additivityViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "kernelshap_additivity_violations_total",
			Help: "Explanations whose attributions missed the additivity tolerance",
		}),
		degenerateSolves: factory.NewCounter(prometheus.CounterOpts{
			Name: "kernelshap_degenerate_solves_total",
			Help: "Solves that fell back to the pseudo-inverse",
		}),
	}
}

func (m *Metrics) observeModelCall(rows int) {
	if m == nil {
		return
	}
	m.modelCalls.Inc()
	m.modelRows.Add(float64(rows))
}

func (m *Metrics) observeExplanation(err error, coalitions int, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.explanations.WithLabelValues(status).Inc()
	if err == nil {
		m.coalitions.Observe(float64(coalitions))
	}
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeAdditivityViolation() {
	if m == nil {
		return
	}
	m.additivityViolations.Inc()
}

func (m *Metrics) observeDegenerate() {
	if m == nil {
		return
	}
	m.degenerateSolves.Inc()
}
