// Package explain computes per-prediction feature attributions for each
// target classifier. The primary tier uses the exact additive path
// attribution available on tree ensembles; when that is unsupported or
// fails, a sampling-based approximation estimates attributions through
// the classifier's probability output. Both tiers failing degrades the
// explanation to an empty list; explanations are best-effort, predictions
// are not.
package explain

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"healthrisk-api/internal/model"
)

// TreeAttributor is the optional capability a classifier exposes when its
// structure supports exact additive attribution.
type TreeAttributor interface {
	Contributions(x []float64) ([]float64, error)
}

// MetricsInterface defines the metrics hooks the engine reports through.
type MetricsInterface interface {
	AttributionLatencyObserve(float64)
	AttributionFallbackInc()
	AttributionUnavailableInc()
}

// Attribution is one feature's signed contribution to a prediction.
type Attribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"shap_value"`
}

// Config configures an Engine.
type Config struct {
	Features           []string    // schema column names, in vector order
	TopK               int         // maximum entries per explanation
	KernelSamples      int         // coalition sample budget for the fallback
	BackgroundReplicas int         // rows in the synthetic background when none is given
	Background         [][]float64 // optional reference rows for the fallback
	Seed               int64       // 0 seeds from the clock
}

// Engine ranks per-feature attributions for single instances. It is safe
// for concurrent use; only the fallback's random source is guarded.
//
// The sampling fallback is inherently stochastic: repeated calls on the
// same input may produce slightly different values and top-K sets. That
// is a property of the method, not a defect, and callers must not expect
// fallback explanations to be reproducible.
type Engine struct {
	features   []string
	topK       int
	samples    int
	replicas   int
	background [][]float64
	metrics    MetricsInterface

	mu  sync.Mutex
	rng *rand.Rand
}

// Attribution tiers, walked in order per target per request.
type tier int

const (
	tierTree tier = iota
	tierSampled
	tierUnavailable
)

func NewEngine(cfg Config, metrics MetricsInterface) *Engine {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	samples := cfg.KernelSamples
	if samples <= 0 {
		samples = 50
	}
	replicas := cfg.BackgroundReplicas
	if replicas <= 0 {
		replicas = 10
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		features:   cfg.Features,
		topK:       topK,
		samples:    samples,
		replicas:   replicas,
		background: cfg.Background,
		metrics:    metrics,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Explain returns at most TopK attributions for one target's prediction,
// ranked by descending absolute value with ties broken by schema column
// order. It never fails: when both tiers are unavailable the result is an
// empty (non-nil) list.
func (e *Engine) Explain(x []float64, target string, clf model.Classifier) []Attribution {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.AttributionLatencyObserve(time.Since(start).Seconds())
		}
	}()

	state := tierTree
	for {
		switch state {
		case tierTree:
			ta, ok := clf.(TreeAttributor)
			if !ok {
				state = tierSampled
				continue
			}
			vals, err := ta.Contributions(x)
			if err != nil || len(vals) != len(e.features) {
				log.Warn().Err(err).Str("target", target).Msg("tree attribution failed, falling back to sampling")
				state = tierSampled
				continue
			}
			return e.rank(vals)

		case tierSampled:
			if e.metrics != nil {
				e.metrics.AttributionFallbackInc()
			}
			vals, err := e.kernelEstimate(x, clf.ProbPositive)
			if err != nil {
				log.Warn().Err(err).Str("target", target).Msg("sampled attribution failed")
				state = tierUnavailable
				continue
			}
			return e.rank(vals)

		case tierUnavailable:
			if e.metrics != nil {
				e.metrics.AttributionUnavailableInc()
			}
			return []Attribution{}
		}
	}
}

// rank selects the top-K attributions by absolute magnitude. The stable
// sort keeps schema column order for equal magnitudes, and the signed
// values are preserved in the output.
func (e *Engine) rank(vals []float64) []Attribution {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(vals[idx[a]]) > math.Abs(vals[idx[b]])
	})

	k := e.topK
	if k > len(idx) {
		k = len(idx)
	}
	out := make([]Attribution, 0, k)
	for _, i := range idx[:k] {
		out = append(out, Attribution{Feature: e.features[i], Value: vals[i]})
	}
	return out
}
