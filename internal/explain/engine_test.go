package explain

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthrisk-api/internal/model"
)

// mockMetrics records attribution metric calls.
type mockMetrics struct {
	latencies   int
	fallbacks   int
	unavailable int
}

func (m *mockMetrics) AttributionLatencyObserve(float64) { m.latencies++ }
func (m *mockMetrics) AttributionFallbackInc()           { m.fallbacks++ }
func (m *mockMetrics) AttributionUnavailableInc()        { m.unavailable++ }

// probOnly supports probabilities but not tree attribution.
type probOnly struct {
	fn func(x []float64) (float64, error)
}

func (c *probOnly) ProbPositive(x []float64) (float64, error) { return c.fn(x) }

// brokenTree claims tree attribution but fails it; probabilities work.
type brokenTree struct {
	probOnly
}

func (c *brokenTree) Contributions(x []float64) ([]float64, error) {
	return nil, fmt.Errorf("unsupported structure")
}

// dead fails both tiers.
type dead struct{}

func (c *dead) ProbPositive(x []float64) (float64, error) {
	return 0, fmt.Errorf("classifier offline")
}
func (c *dead) Contributions(x []float64) ([]float64, error) {
	return nil, fmt.Errorf("classifier offline")
}

func engineWith(features []string, topK int, m MetricsInterface) *Engine {
	return NewEngine(Config{
		Features:      features,
		TopK:          topK,
		KernelSamples: 100,
		Seed:          42,
	}, m)
}

func TestExplain_TreeTier(t *testing.T) {
	ens := &model.Ensemble{
		NumFeatures: 3,
		Trees: []*model.Tree{{
			Feature:   []int{1, model.Leaf, model.Leaf},
			Threshold: []float64{0.0, 0, 0},
			Left:      []int{1, 0, 0},
			Right:     []int{2, 0, 0},
			Value:     []float64{0.0, -2.0, 2.0},
		}},
	}
	require.NoError(t, ens.Validate())

	m := &mockMetrics{}
	e := engineWith([]string{"a", "b", "c"}, 2, m)

	attrs := e.Explain([]float64{0, 1, 0}, "Obesity_Flag", ens)
	require.Len(t, attrs, 2)
	assert.Equal(t, "b", attrs[0].Feature)
	assert.InDelta(t, 2.0, attrs[0].Value, 1e-12)

	assert.Equal(t, 0, m.fallbacks, "tree tier must not trigger the fallback")
	assert.Equal(t, 1, m.latencies)
}

func TestExplain_FallbackOnTreeFailure(t *testing.T) {
	clf := &brokenTree{probOnly{fn: func(x []float64) (float64, error) {
		s := 0.0
		for _, v := range x {
			s += v
		}
		return 1.0 / (1.0 + math.Exp(-s)), nil
	}}}

	m := &mockMetrics{}
	e := engineWith([]string{"a", "b", "c"}, 3, m)

	attrs := e.Explain([]float64{1, 2, 3}, "Stroke_Flag", clf)
	assert.NotNil(t, attrs)
	assert.LessOrEqual(t, len(attrs), 3)
	assert.Equal(t, 1, m.fallbacks)
	assert.Equal(t, 0, m.unavailable)
}

func TestExplain_UnavailableIsEmptyNotError(t *testing.T) {
	m := &mockMetrics{}
	e := engineWith([]string{"a", "b"}, 5, m)

	attrs := e.Explain([]float64{1, 2}, "Hypertension_Flag", &dead{})
	require.NotNil(t, attrs)
	assert.Empty(t, attrs)
	assert.Equal(t, 1, m.fallbacks)
	assert.Equal(t, 1, m.unavailable)
}

func TestRank_OrderAndTieBreak(t *testing.T) {
	e := engineWith([]string{"a", "b", "c", "d", "e"}, 3, nil)

	// |c| > |a| == |d| > |b|; the tie between a and d keeps schema order.
	attrs := e.rank([]float64{0.5, 0.1, -0.9, 0.5, 0.0})
	require.Len(t, attrs, 3)
	assert.Equal(t, "c", attrs[0].Feature)
	assert.InDelta(t, -0.9, attrs[0].Value, 1e-12, "signed value preserved")
	assert.Equal(t, "a", attrs[1].Feature)
	assert.Equal(t, "d", attrs[2].Feature)
}

func TestRank_TopKCapped(t *testing.T) {
	e := engineWith([]string{"a", "b"}, 10, nil)
	attrs := e.rank([]float64{1.0, -2.0})
	assert.Len(t, attrs, 2)

	e = engineWith([]string{"a", "b", "c", "d"}, 2, nil)
	attrs = e.rank([]float64{1, 2, 3, 4})
	assert.Len(t, attrs, 2)
}
