// Package service composes the inference pipeline: validate and
// vectorize the record, run every target classifier, attach best-effort
// attributions, and assemble the response. One request runs the stages
// sequentially; all shared state underneath is read-only, so concurrent
// requests need no coordination.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"healthrisk-api/internal/drift"
	"healthrisk-api/internal/explain"
	"healthrisk-api/internal/model"
	"healthrisk-api/internal/schema"
	"healthrisk-api/internal/storage"
	"healthrisk-api/internal/vectorize"
)

// MetricsInterface defines the metrics hooks the service reports through.
type MetricsInterface interface {
	PredictionsInc()
	ValidationFailuresInc()
	InternalErrorsInc()
	TargetErrorInc(target string)
	RequestLatencyObserve(float64)
	BudgetExceededInc()
}

// TargetPrediction is one target's slot in the response. A failed target
// carries null prediction fields and an error marker instead of aborting
// the whole response.
type TargetPrediction struct {
	Prediction  *bool                 `json:"prediction"`
	Probability *float64              `json:"probability"`
	TopFeatures []explain.Attribution `json:"top_features"`
	Error       string                `json:"error,omitempty"`
}

// Response is the full prediction payload.
type Response struct {
	Predictions   map[string]TargetPrediction `json:"predictions"`
	InferenceTime float64                     `json:"inference_time"`
	Status        string                      `json:"status"`
}

// Service is the inference orchestrator.
type Service struct {
	vec     *vectorize.Vectorizer
	pred    *model.MultiPredictor
	eng     *explain.Engine
	store   *storage.Store
	drift   *drift.Monitor
	metrics MetricsInterface
	budget  time.Duration
}

// Config wires the orchestrator's collaborators. Store and Drift are
// optional; Budget is the soft latency budget (observational only).
type Config struct {
	Vectorizer *vectorize.Vectorizer
	Predictor  *model.MultiPredictor
	Engine     *explain.Engine
	Store      *storage.Store
	Drift      *drift.Monitor
	Metrics    MetricsInterface
	Budget     time.Duration
}

func New(cfg Config) *Service {
	budget := cfg.Budget
	if budget <= 0 {
		budget = 5 * time.Second
	}
	return &Service{
		vec:     cfg.Vectorizer,
		pred:    cfg.Predictor,
		eng:     cfg.Engine,
		store:   cfg.Store,
		drift:   cfg.Drift,
		metrics: cfg.Metrics,
		budget:  budget,
	}
}

// Handle runs the full request cycle. A schema.ValidationError is the
// client's fault and maps to a 4xx upstream; any other error is
// internal. Per-target classifier failures and attribution failures do
// not fail the request.
func (s *Service) Handle(ctx context.Context, rec *schema.Record) (*Response, error) {
	start := time.Now()

	vec, err := s.vec.Vectorize(rec)
	if err != nil {
		var ve *schema.ValidationError
		if s.metrics != nil {
			if errors.As(err, &ve) {
				s.metrics.ValidationFailuresInc()
			} else {
				s.metrics.InternalErrorsInc()
			}
		}
		return nil, err
	}

	if s.drift != nil {
		s.drift.Observe(vec)
	}

	results := s.pred.Predict(vec)

	predictions := make(map[string]TargetPrediction, len(results))
	for _, r := range results {
		if r.Err != nil {
			log.Error().Err(r.Err).Str("target", r.Target).Msg("target prediction failed")
			if s.metrics != nil {
				s.metrics.TargetErrorInc(r.Target)
			}
			predictions[r.Target] = TargetPrediction{
				TopFeatures: []explain.Attribution{},
				Error:       "prediction failed",
			}
			continue
		}

		label := r.Label
		prob := r.Probability
		tp := TargetPrediction{
			Prediction:  &label,
			Probability: &prob,
			TopFeatures: []explain.Attribution{},
		}
		if clf := s.classifierFor(r.Target); clf != nil {
			tp.TopFeatures = s.eng.Explain(vec, r.Target, clf)
		}
		predictions[r.Target] = tp
	}

	elapsed := time.Since(start)
	resp := &Response{
		Predictions:   predictions,
		InferenceTime: elapsed.Seconds(),
		Status:        "success",
	}

	if s.metrics != nil {
		s.metrics.PredictionsInc()
		s.metrics.RequestLatencyObserve(elapsed.Seconds())
	}
	if elapsed > s.budget {
		log.Warn().Dur("elapsed", elapsed).Dur("budget", s.budget).Msg("request exceeded soft latency budget")
		if s.metrics != nil {
			s.metrics.BudgetExceededInc()
		}
	}

	s.persist(rec, resp)
	return resp, nil
}

func (s *Service) classifierFor(target string) model.Classifier {
	for _, t := range s.pred.Targets() {
		if t.Name == target {
			return t.Model
		}
	}
	return nil
}

// persist records the served prediction best-effort.
func (s *Service) persist(rec *schema.Record, resp *Response) {
	if s.store == nil {
		return
	}

	outcomes := make(map[string]storage.Outcome, len(resp.Predictions))
	for target, p := range resp.Predictions {
		o := storage.Outcome{Error: p.Error}
		if p.Prediction != nil {
			o.Prediction = *p.Prediction
		}
		if p.Probability != nil {
			o.Probability = *p.Probability
		}
		outcomes[target] = o
	}

	entry := storage.Entry{
		Ts:            time.Now(),
		Record:        *rec,
		Outcomes:      outcomes,
		InferenceTime: resp.InferenceTime,
	}
	if err := s.store.StorePrediction(entry); err != nil {
		log.Warn().Err(err).Msg("failed to persist prediction history")
	}
}

// History returns the most recent stored predictions, newest first.
func (s *Service) History(limit int) ([]storage.Entry, error) {
	if s.store == nil {
		return []storage.Entry{}, nil
	}
	return s.store.Recent(limit)
}
