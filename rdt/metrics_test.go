package rdt

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// newTestMetrics returns a Metrics registered against a scratch registry,
// so tests never collide with each other or with any process-wide default
// registry.
func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}
