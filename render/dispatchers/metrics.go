package dispatchers

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	rendered *prometheus.CounterVec
	duration *prometheus.HistogramVec
	missing  prometheus.Counter
	queued   *prometheus.GaugeVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		rendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_rendered_total",
			Help:      "Chunk renders by map type and result.",
		}, []string{"map_type", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_render_duration_seconds",
			Help:      "Time spent rendering one chunk for one map type.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}, []string{"map_type"}),
		missing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_missing_total",
			Help:      "Render requests dropped because the chunk was not loaded.",
		}),
		queued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "render_queue_length",
			Help:      "Tasks waiting in the render queues.",
		}, []string{"queue"}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.rendered, m.duration, m.missing, m.queued} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
