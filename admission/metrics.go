package admission

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by all controllers. A nil
// *Metrics is valid and records nothing, so instrumentation stays optional.
type Metrics struct {
	decisions *prometheus.CounterVec
	blocks    *prometheus.CounterVec
}

// NewMetrics creates the admission collectors and registers them on reg when
// it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gate",
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Admission decisions by route class and outcome.",
		}, []string{"class", "outcome"}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gate",
			Subsystem: "admission",
			Name:      "blocked_denials_total",
			Help:      "Denials issued while a key was in a punitive block, by route class.",
		}, []string{"class"}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.blocks)
	}
	return m
}

func (m *Metrics) incDecision(class Class, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(class), outcome).Inc()
}

func (m *Metrics) incBlocked(class Class) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues(string(class)).Inc()
}
