package explain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearLogit builds a classifier probability with a linear log-odds
// surface. Against an all-zero background the sampled estimate has zero
// regression residual, so it recovers w_j*x_j exactly.
func linearLogit(w []float64) ProbFn {
	return func(x []float64) (float64, error) {
		s := 0.0
		for i, v := range x {
			s += w[i] * v
		}
		return 1.0 / (1.0 + math.Exp(-s)), nil
	}
}

func TestKernelEstimate_LinearModelExact(t *testing.T) {
	w := []float64{0.5, -1.0, 0.8}
	x := []float64{1.0, 2.0, 0.5}

	e := NewEngine(Config{
		Features:      []string{"a", "b", "c"},
		TopK:          3,
		KernelSamples: 200,
		Background:    [][]float64{{0, 0, 0}},
		Seed:          7,
	}, nil)

	phi, err := e.kernelEstimate(x, linearLogit(w))
	require.NoError(t, err)
	require.Len(t, phi, 3)

	for j := range w {
		assert.InDelta(t, w[j]*x[j], phi[j], 1e-6, "feature %d", j)
	}
}

func TestKernelEstimate_AdditivityHolds(t *testing.T) {
	w := []float64{1.2, -0.3, 0.4, 0.9}
	x := []float64{0.5, 1.5, -1.0, 0.25}

	e := NewEngine(Config{
		Features:      []string{"a", "b", "c", "d"},
		TopK:          4,
		KernelSamples: 300,
		Background:    [][]float64{{0, 0, 0, 0}},
		Seed:          11,
	}, nil)

	f := linearLogit(w)
	phi, err := e.kernelEstimate(x, f)
	require.NoError(t, err)

	px, _ := f(x)
	p0, _ := f([]float64{0, 0, 0, 0})
	want := logit(px) - logit(p0)

	sum := 0.0
	for _, v := range phi {
		sum += v
	}
	assert.InDelta(t, want, sum, 1e-9, "attributions must sum to the log-odds gap")
}

func TestKernelEstimate_SingleFeature(t *testing.T) {
	e := NewEngine(Config{
		Features:      []string{"only"},
		TopK:          1,
		KernelSamples: 50,
		Background:    [][]float64{{0}},
		Seed:          3,
	}, nil)

	phi, err := e.kernelEstimate([]float64{2.0}, linearLogit([]float64{0.7}))
	require.NoError(t, err)
	require.Len(t, phi, 1)
	assert.InDelta(t, 1.4, phi[0], 1e-9)
}

func TestKernelEstimate_EmptyVector(t *testing.T) {
	e := NewEngine(Config{Features: nil, TopK: 1, KernelSamples: 10, Seed: 1}, nil)
	_, err := e.kernelEstimate(nil, linearLogit(nil))
	assert.Error(t, err)
}

func TestKernelEstimate_DegenerateBackgroundIsZero(t *testing.T) {
	// With no configured background the instance explains itself, so
	// every attribution collapses to zero.
	e := NewEngine(Config{
		Features:           []string{"a", "b", "c"},
		TopK:               3,
		KernelSamples:      100,
		BackgroundReplicas: 10,
		Seed:               5,
	}, nil)

	phi, err := e.kernelEstimate([]float64{1, 2, 3}, linearLogit([]float64{0.4, 0.1, -0.2}))
	require.NoError(t, err)
	for j, v := range phi {
		assert.InDelta(t, 0.0, v, 1e-9, "feature %d", j)
	}
}

func TestSolveWLS(t *testing.T) {
	A := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	b := []float64{1, 2, 3}
	w := []float64{1, 1, 1}

	phi, err := solveWLS(A, b, w)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, phi[0], 1e-9)
	assert.InDelta(t, 2.0, phi[1], 1e-9)
}

func TestSolveWLS_Singular(t *testing.T) {
	A := [][]float64{{1, 1}, {2, 2}, {3, 3}}
	b := []float64{1, 2, 3}
	w := []float64{1, 1, 1}

	_, err := solveWLS(A, b, w)
	assert.Error(t, err)
}

func TestShapleyKernel(t *testing.T) {
	assert.InDelta(t, 0.25, shapleyKernel(4, 1), 1e-12)
	assert.InDelta(t, 0.125, shapleyKernel(4, 2), 1e-12)
	assert.InDelta(t, 10.0, binom(5, 2), 1e-12)
	assert.InDelta(t, 1.0, binom(6, 0), 1e-12)
}

func TestSampleCoalition_Bounds(t *testing.T) {
	e := NewEngine(Config{Features: []string{"a", "b", "c", "d"}, TopK: 1, KernelSamples: 10, Seed: 9}, nil)
	for i := 0; i < 200; i++ {
		z := e.sampleCoalition(4)
		n := 0
		for _, on := range z {
			if on {
				n++
			}
		}
		require.Greater(t, n, 0)
		require.Less(t, n, 4)
	}
}
