// Package drift monitors whether the incoming feature distribution is
// moving away from what the models were trained on. Vectors are already
// standardized with training-time parameters, so the training baseline
// is zero mean and unit variance per feature; the drift score for a
// feature is the absolute value of its running mean. Purely
// observational: scores feed a gauge, nothing is blocked.
package drift

import (
	"math"
	"sync"
)

// MetricsInterface receives per-feature drift scores.
type MetricsInterface interface {
	DriftScoreSet(feature string, v float64)
}

type featureStats struct {
	count int64
	mean  float64
	m2    float64
}

// Monitor accumulates running statistics per feature over scaled input
// vectors.
type Monitor struct {
	mu       sync.Mutex
	features []string
	stats    []featureStats
	metrics  MetricsInterface
}

func NewMonitor(features []string, metrics MetricsInterface) *Monitor {
	return &Monitor{
		features: features,
		stats:    make([]featureStats, len(features)),
		metrics:  metrics,
	}
}

// Observe folds one scaled feature vector into the running statistics
// using Welford's update, then refreshes the drift gauges.
func (m *Monitor) Observe(x []float64) {
	if len(x) != len(m.features) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		s := &m.stats[i]
		s.count++
		delta := v - s.mean
		s.mean += delta / float64(s.count)
		s.m2 += delta * (v - s.mean)

		if m.metrics != nil {
			m.metrics.DriftScoreSet(m.features[i], math.Abs(s.mean))
		}
	}
}

// Scores returns the current per-feature drift scores.
func (m *Monitor) Scores() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float64, len(m.features))
	for i, f := range m.features {
		out[f] = math.Abs(m.stats[i].mean)
	}
	return out
}

// SampleCount returns how many vectors have been observed.
func (m *Monitor) SampleCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.stats) == 0 {
		return 0
	}
	return m.stats[0].count
}
