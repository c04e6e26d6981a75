package explain

import (
	"fmt"
	"math"
)

// ProbFn evaluates a classifier's positive-class probability.
type ProbFn func(x []float64) (float64, error)

// kernelEstimate approximates per-feature attributions for a single
// instance with a model-agnostic coalition-sampling scheme: random
// feature subsets are evaluated through the probability function against
// a background distribution, and a Shapley-kernel-weighted linear
// regression recovers additive contributions. A logit link keeps the
// contributions additive in log-odds space.
//
// When no background is configured, a degenerate one is built by
// replicating the input instance. That is acceptable only because the
// goal is a local explanation of this instance, not a population
// baseline.
func (e *Engine) kernelEstimate(x []float64, f ProbFn) ([]float64, error) {
	d := len(x)
	if d == 0 {
		return nil, fmt.Errorf("empty feature vector")
	}

	bg := e.background
	if len(bg) == 0 {
		bg = make([][]float64, e.replicas)
		for i := range bg {
			bg[i] = x
		}
	}

	px, err := f(x)
	if err != nil {
		return nil, fmt.Errorf("evaluate instance: %w", err)
	}
	gFull := logit(px)

	gBase := 0.0
	for _, row := range bg {
		p, err := f(row)
		if err != nil {
			return nil, fmt.Errorf("evaluate background: %w", err)
		}
		gBase += logit(p)
	}
	gBase /= float64(len(bg))
	diff := gFull - gBase

	if d == 1 {
		return []float64{diff}, nil
	}

	// The additivity constraint (attributions sum to diff) is folded in
	// by eliminating the last feature's coefficient, so the regression
	// has d-1 unknowns.
	rows := e.samples
	A := make([][]float64, rows)
	b := make([]float64, rows)
	w := make([]float64, rows)

	masked := make([]float64, d)
	for i := 0; i < rows; i++ {
		z := e.sampleCoalition(d)
		copy(masked, x)
		ref := bg[i%len(bg)]
		size := 0
		for j, on := range z {
			if on {
				size++
			} else {
				masked[j] = ref[j]
			}
		}

		p, err := f(masked)
		if err != nil {
			return nil, fmt.Errorf("evaluate coalition: %w", err)
		}
		gy := logit(p)

		zLast := 0.0
		if z[d-1] {
			zLast = 1
		}
		row := make([]float64, d-1)
		for j := 0; j < d-1; j++ {
			zj := 0.0
			if z[j] {
				zj = 1
			}
			row[j] = zj - zLast
		}
		A[i] = row
		b[i] = gy - gBase - diff*zLast
		w[i] = shapleyKernel(d, size)
	}

	phi, err := solveWLS(A, b, w)
	if err != nil {
		return nil, err
	}

	out := make([]float64, d)
	sum := 0.0
	for j := 0; j < d-1; j++ {
		out[j] = phi[j]
		sum += phi[j]
	}
	out[d-1] = diff - sum
	return out, nil
}

// sampleCoalition draws a random feature subset z with 0 < |z| < d.
// The empty and full coalitions carry infinite kernel weight and are
// handled exactly through the regression's intercept and constraint.
func (e *Engine) sampleCoalition(d int) []bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	size := 1 + e.rng.Intn(d-1)
	z := make([]bool, d)
	for _, j := range e.rng.Perm(d)[:size] {
		z[j] = true
	}
	return z
}

// shapleyKernel is the coalition weight (d-1) / (C(d,s) * s * (d-s)).
func shapleyKernel(d, s int) float64 {
	return float64(d-1) / (binom(d, s) * float64(s) * float64(d-s))
}

func binom(n, k int) float64 {
	if k > n-k {
		k = n - k
	}
	r := 1.0
	for i := 0; i < k; i++ {
		r = r * float64(n-i) / float64(i+1)
	}
	return r
}

const logitEps = 1e-6

// logit maps a probability into log-odds, clamped away from 0 and 1.
func logit(p float64) float64 {
	if p < logitEps {
		p = logitEps
	}
	if p > 1-logitEps {
		p = 1 - logitEps
	}
	return math.Log(p / (1 - p))
}

// solveWLS solves argmin Σ w_i (b_i - a_i·phi)^2 through the normal
// equations with Gaussian elimination and partial pivoting. A singular
// system reports an error rather than a garbage solution.
func solveWLS(A [][]float64, b, w []float64) ([]float64, error) {
	if len(A) == 0 {
		return nil, fmt.Errorf("no regression samples")
	}
	m := len(A[0])

	M := make([][]float64, m)
	for i := range M {
		M[i] = make([]float64, m+1)
	}
	for i, row := range A {
		for j := 0; j < m; j++ {
			for k := 0; k < m; k++ {
				M[j][k] += w[i] * row[j] * row[k]
			}
			M[j][m] += w[i] * row[j] * b[i]
		}
	}

	for col := 0; col < m; col++ {
		pivot := col
		for r := col + 1; r < m; r++ {
			if math.Abs(M[r][col]) > math.Abs(M[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(M[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular regression system at column %d", col)
		}
		M[col], M[pivot] = M[pivot], M[col]

		for r := 0; r < m; r++ {
			if r == col {
				continue
			}
			factor := M[r][col] / M[col][col]
			for k := col; k <= m; k++ {
				M[r][k] -= factor * M[col][k]
			}
		}
	}

	phi := make([]float64, m)
	for i := 0; i < m; i++ {
		phi[i] = M[i][m] / M[i][i]
		if math.IsNaN(phi[i]) || math.IsInf(phi[i], 0) {
			return nil, fmt.Errorf("non-finite regression coefficient %d", i)
		}
	}
	return phi, nil
}
