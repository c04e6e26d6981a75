package model

import (
	"fmt"
	"math"
)

// Classifier is the capability set every target's trained model provides.
// Implementations must be safe for concurrent read-only use.
type Classifier interface {
	// ProbPositive returns the positive-class probability for the scaled
	// feature vector.
	ProbPositive(x []float64) (float64, error)
}

// TargetSpec binds one prediction target to its classifier. Targets are
// independent; they share nothing but the input vector.
type TargetSpec struct {
	Name  string
	Model Classifier
}

// Result is one target's outcome. Err is set when that target's
// classifier failed; the prediction fields are then meaningless.
type Result struct {
	Target      string
	Label       bool
	Probability float64
	Err         error
}

// MultiPredictor invokes every target's classifier against a shared
// feature vector, in a fixed stable order. A failing target is isolated:
// it reports a per-target error while the others proceed.
type MultiPredictor struct {
	targets []TargetSpec
}

func NewMultiPredictor(targets []TargetSpec) (*MultiPredictor, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("no prediction targets configured")
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t.Name == "" || t.Model == nil {
			return nil, fmt.Errorf("target spec is incomplete")
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate target %s", t.Name)
		}
		seen[t.Name] = true
	}
	return &MultiPredictor{targets: targets}, nil
}

// Targets returns the specs in reporting order.
func (p *MultiPredictor) Targets() []TargetSpec {
	return p.targets
}

// Predict returns one Result per target, in the order the targets were
// registered. Label is probability >= 0.5.
func (p *MultiPredictor) Predict(x []float64) []Result {
	results := make([]Result, 0, len(p.targets))
	for _, t := range p.targets {
		prob, err := t.Model.ProbPositive(x)
		if err != nil {
			results = append(results, Result{Target: t.Name, Err: fmt.Errorf("classifier %s: %w", t.Name, err)})
			continue
		}
		if prob < 0 || prob > 1 || math.IsNaN(prob) {
			results = append(results, Result{Target: t.Name, Err: fmt.Errorf("classifier %s returned invalid probability %v", t.Name, prob)})
			continue
		}
		results = append(results, Result{
			Target:      t.Name,
			Label:       prob >= 0.5,
			Probability: prob,
		})
	}
	return results
}
