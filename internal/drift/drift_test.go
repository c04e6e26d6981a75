package drift

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gaugeRecorder struct {
	values map[string]float64
}

func (g *gaugeRecorder) DriftScoreSet(feature string, v float64) {
	if g.values == nil {
		g.values = map[string]float64{}
	}
	g.values[feature] = v
}

func TestObserveAndScores(t *testing.T) {
	m := NewMonitor([]string{"Age", "BMI"}, nil)

	m.Observe([]float64{1.0, -2.0})
	m.Observe([]float64{3.0, 0.0})

	scores := m.Scores()
	assert.InDelta(t, 2.0, scores["Age"], 1e-12)
	assert.InDelta(t, 1.0, scores["BMI"], 1e-12)
	assert.EqualValues(t, 2, m.SampleCount())
}

func TestObserve_CenteredInputsScoreZero(t *testing.T) {
	m := NewMonitor([]string{"x"}, nil)
	for i := 0; i < 100; i++ {
		v := 1.0
		if i%2 == 1 {
			v = -1.0
		}
		m.Observe([]float64{v})
	}
	assert.InDelta(t, 0.0, m.Scores()["x"], 1e-12)
}

func TestObserve_LengthMismatchIgnored(t *testing.T) {
	m := NewMonitor([]string{"a", "b"}, nil)
	m.Observe([]float64{1.0})
	assert.EqualValues(t, 0, m.SampleCount())
}

func TestObserve_NonFiniteSkipped(t *testing.T) {
	m := NewMonitor([]string{"a", "b"}, nil)
	m.Observe([]float64{math.NaN(), 2.0})
	m.Observe([]float64{4.0, math.Inf(1)})

	scores := m.Scores()
	assert.InDelta(t, 4.0, scores["a"], 1e-12)
	assert.InDelta(t, 2.0, scores["b"], 1e-12)
}

func TestObserve_UpdatesGauges(t *testing.T) {
	rec := &gaugeRecorder{}
	m := NewMonitor([]string{"Age"}, rec)

	m.Observe([]float64{-3.0})
	require.Contains(t, rec.values, "Age")
	assert.InDelta(t, 3.0, rec.values["Age"], 1e-12)
}

func TestSampleCount_NoFeatures(t *testing.T) {
	m := NewMonitor(nil, nil)
	m.Observe(nil)
	assert.EqualValues(t, 0, m.SampleCount())
}
