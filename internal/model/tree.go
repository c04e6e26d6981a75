// Package model holds the trained per-target binary classifiers. Models
// are gradient-boosted regression tree ensembles whose summed margin maps
// to a positive-class probability through the logistic function. The
// structures are loaded once at startup and are read-only per call, so
// concurrent requests share them without locking.
package model

import (
	"fmt"
	"math"
)

// Tree is one regression tree in flat array form. Node i splits on
// Feature[i] at Threshold[i] (x < threshold goes left); Feature[i] == -1
// marks a leaf. Value[i] is the training-time expected margin of the
// subtree rooted at i, which at leaves is the tree's output and at
// internal nodes supports exact path attribution.
type Tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

// Leaf is the sentinel feature index marking leaf nodes.
const Leaf = -1

func (t *Tree) validate(numFeatures int) error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return fmt.Errorf("tree node arrays have inconsistent lengths")
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(t.Value[i]) || math.IsInf(t.Value[i], 0) {
			return fmt.Errorf("node %d has non-finite value", i)
		}
		if t.Feature[i] == Leaf {
			continue
		}
		if t.Feature[i] < 0 || t.Feature[i] >= numFeatures {
			return fmt.Errorf("node %d splits on out-of-range feature %d", i, t.Feature[i])
		}
		if t.Left[i] < 0 || t.Left[i] >= n || t.Right[i] < 0 || t.Right[i] >= n {
			return fmt.Errorf("node %d has out-of-range children", i)
		}
		if t.Left[i] <= i || t.Right[i] <= i {
			return fmt.Errorf("node %d children must have higher indices", i)
		}
	}
	return nil
}

// predict walks the decision path for x and returns the leaf margin.
func (t *Tree) predict(x []float64) float64 {
	i := 0
	for t.Feature[i] != Leaf {
		if x[t.Feature[i]] < t.Threshold[i] {
			i = t.Left[i]
		} else {
			i = t.Right[i]
		}
	}
	return t.Value[i]
}

// contribute accumulates the per-feature margin deltas along the decision
// path of x into out: each split attributes the change in subtree
// expectation to its split feature. Summed over the path this equals
// leaf value minus root expectation, so the attribution is exactly
// additive in margin space.
func (t *Tree) contribute(x []float64, out []float64) {
	i := 0
	for t.Feature[i] != Leaf {
		next := t.Left[i]
		if x[t.Feature[i]] >= t.Threshold[i] {
			next = t.Right[i]
		}
		out[t.Feature[i]] += t.Value[next] - t.Value[i]
		i = next
	}
}

// Ensemble is a boosted sum of regression trees plus a prior margin.
type Ensemble struct {
	NumFeatures int     `json:"num_features"`
	BaseScore   float64 `json:"base_score"`
	Trees       []*Tree `json:"trees"`
}

// Validate checks structural consistency of every tree.
func (e *Ensemble) Validate() error {
	if e.NumFeatures <= 0 {
		return fmt.Errorf("ensemble declares %d features", e.NumFeatures)
	}
	if len(e.Trees) == 0 {
		return fmt.Errorf("ensemble has no trees")
	}
	for i, t := range e.Trees {
		if err := t.validate(e.NumFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// Margin returns the summed raw score (log-odds) for x.
func (e *Ensemble) Margin(x []float64) (float64, error) {
	if len(x) != e.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", e.NumFeatures, len(x))
	}
	m := e.BaseScore
	for _, t := range e.Trees {
		m += t.predict(x)
	}
	return m, nil
}

// ProbPositive returns the positive-class probability for x.
func (e *Ensemble) ProbPositive(x []float64) (float64, error) {
	m, err := e.Margin(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(m), nil
}

// Contributions returns the exact per-feature attribution of the margin
// for x, one signed value per schema column. The values sum to
// Margin(x) minus the ensemble's expected margin over training data.
func (e *Ensemble) Contributions(x []float64) ([]float64, error) {
	if len(x) != e.NumFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", e.NumFeatures, len(x))
	}
	out := make([]float64, e.NumFeatures)
	for _, t := range e.Trees {
		t.contribute(x, out)
	}
	return out, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
