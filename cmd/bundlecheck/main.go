// bundlecheck verifies a model artifact bundle offline: it loads and
// cross-validates the bundle exactly the way the server does at startup,
// and optionally runs one record through the full pipeline. Useful in CI
// before a bundle is published.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"healthrisk-api/internal/artifact"
	"healthrisk-api/internal/explain"
	"healthrisk-api/internal/model"
	"healthrisk-api/internal/schema"
	"healthrisk-api/internal/service"
	"healthrisk-api/internal/vectorize"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dir        = flag.String("dir", "artifacts", "Path to the artifact bundle directory")
		samplePath = flag.String("sample", "", "Optional JSON file with one input record to run")
		topK       = flag.Int("top-k", 5, "Attributions per target for the sample run")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	bundle, err := artifact.Load(*dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("bundle failed validation")
	}

	fmt.Println("=== Bundle ===")
	fmt.Printf("Version:    %s\n", bundle.Meta.Version)
	fmt.Printf("Trained at: %s\n", bundle.Meta.TrainedAt)
	fmt.Printf("Accuracy:   %.4f\n", bundle.Meta.Accuracy)
	fmt.Printf("Targets:    %v\n", bundle.Meta.Targets)
	fmt.Printf("Features:   %d (%d selected)\n", len(bundle.Features), selectedCount(bundle))
	for _, target := range bundle.Meta.Targets {
		ens := bundle.Models[target]
		fmt.Printf("  %s: %d trees, base score %.4f\n", target, len(ens.Trees), ens.BaseScore)
	}

	if *samplePath == "" {
		log.Info().Msg("bundle ok")
		return
	}

	if err := runSample(bundle, *samplePath, *topK); err != nil {
		log.Fatal().Err(err).Msg("sample run failed")
	}
	log.Info().Msg("bundle ok")
}

func selectedCount(b *artifact.Bundle) int {
	if b.Selected == nil {
		return len(b.Features)
	}
	n := 0
	for _, keep := range b.Selected {
		if keep {
			n++
		}
	}
	return n
}

// runSample pushes one record through the same pipeline the server
// serves, and prints the per-target outcomes.
func runSample(bundle *artifact.Bundle, path string, topK int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sample: %w", err)
	}
	var rec schema.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse sample: %w", err)
	}

	vec, err := vectorize.New(bundle.Features, bundle.Encoders, bundle.Scaler, bundle.Selected)
	if err != nil {
		return err
	}

	targets := make([]model.TargetSpec, 0, len(bundle.Meta.Targets))
	for _, name := range bundle.Meta.Targets {
		targets = append(targets, model.TargetSpec{Name: name, Model: bundle.Models[name]})
	}
	pred, err := model.NewMultiPredictor(targets)
	if err != nil {
		return err
	}

	svc := service.New(service.Config{
		Vectorizer: vec,
		Predictor:  pred,
		Engine:     explain.NewEngine(explain.Config{Features: vec.Features(), TopK: topK}, nil),
	})

	resp, err := svc.Handle(context.Background(), &rec)
	if err != nil {
		return err
	}

	fmt.Println("=== Sample ===")
	for _, target := range bundle.Meta.Targets {
		p := resp.Predictions[target]
		if p.Error != "" {
			fmt.Printf("%s: ERROR %s\n", target, p.Error)
			continue
		}
		fmt.Printf("%s: prediction=%v probability=%.4f\n", target, *p.Prediction, *p.Probability)
		for _, a := range p.TopFeatures {
			fmt.Printf("  %-20s %+.4f\n", a.Feature, a.Value)
		}
	}
	fmt.Printf("inference time: %.4fs\n", resp.InferenceTime)
	return nil
}
