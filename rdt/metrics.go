package rdt

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of Prometheus collectors the engine updates as it
// trains; cmd/train_rdt registers these against its own registry and
// serves them when --metrics-addr is set. Nothing in rdt depends on the
// HTTP serving side, only on the collector types themselves.
type Metrics struct {
	NodesTrained     prometheus.Counter
	TrainingDepth    prometheus.Gauge
	CheckpointWrites prometheus.Counter
	BestGain         prometheus.Histogram
}

// NewMetrics constructs a fresh Metrics set and registers it against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodesTrained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rdt",
			Name:      "nodes_trained_total",
			Help:      "Number of tree nodes (internal or leaf) committed so far.",
		}),
		TrainingDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rdt",
			Name:      "training_depth",
			Help:      "Depth level currently being trained.",
		}),
		CheckpointWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rdt",
			Name:      "checkpoint_writes_total",
			Help:      "Number of checkpoint files written.",
		}),
		BestGain: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rdt",
			Name:      "best_gain",
			Help:      "Information gain of the split committed at each internal node.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.NodesTrained, m.TrainingDepth, m.CheckpointWrites, m.BestGain)
	return m
}
