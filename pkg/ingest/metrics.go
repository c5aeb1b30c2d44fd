package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	samples *prometheus.CounterVec
	weight  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xstack_ingest_samples_total",
			Help: "Number of stack samples ingested.",
		}, []string{"format"}),
		weight: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "xstack_ingest_sample_weight_total",
			Help: "Sum of the weights of the ingested stack samples.",
		}, []string{"format"}),
	}
	reg.MustRegister(m.samples, m.weight)

	return m
}

func (m *metrics) observe(format Format, weight uint64) {
	if m == nil {
		return
	}
	m.samples.WithLabelValues(format.String()).Inc()
	m.weight.WithLabelValues(format.String()).Add(float64(weight))
}
