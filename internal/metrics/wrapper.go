package metrics

// Wrapper adapts Metrics to the small interfaces the service and
// attribution packages consume, which avoids import cycles and keeps
// those packages testable with hand mocks.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc() { w.m.PredictionsTotal.Inc() }

func (w *Wrapper) ValidationFailuresInc() { w.m.ValidationFailures.Inc() }

func (w *Wrapper) InternalErrorsInc() { w.m.InternalErrors.Inc() }

func (w *Wrapper) TargetErrorInc(target string) { w.m.TargetErrors.WithLabelValues(target).Inc() }

func (w *Wrapper) AttributionFallbackInc() { w.m.AttributionFallbackUse.Inc() }

func (w *Wrapper) AttributionUnavailableInc() { w.m.AttributionUnavailable.Inc() }

func (w *Wrapper) RequestLatencyObserve(s float64) { w.m.RequestLatency.Observe(s) }

func (w *Wrapper) AttributionLatencyObserve(s float64) { w.m.AttributionLatency.Observe(s) }

func (w *Wrapper) BudgetExceededInc() { w.m.BudgetExceeded.Inc() }

func (w *Wrapper) ModelAgeSet(s float64) { w.m.ModelAge.Set(s) }

func (w *Wrapper) DriftScoreSet(feature string, v float64) {
	w.m.DriftScore.WithLabelValues(feature).Set(v)
}
