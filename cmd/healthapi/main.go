package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthrisk-api/internal/artifact"
	"healthrisk-api/internal/cfg"
	"healthrisk-api/internal/drift"
	"healthrisk-api/internal/explain"
	"healthrisk-api/internal/metrics"
	"healthrisk-api/internal/model"
	"healthrisk-api/internal/server"
	"healthrisk-api/internal/service"
	"healthrisk-api/internal/storage"
	"healthrisk-api/internal/vectorize"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Artifact loading is a one-time startup cost; any failure here is
	// unrecoverable and the process must not serve.
	if c.ArtifactURL != "" {
		if err := artifact.Fetch(c.ArtifactURL, c.ArtifactDir, c.FetchTimeout); err != nil {
			log.Fatal().Err(err).Msg("artifact fetch failed")
		}
	}
	bundle, err := artifact.Load(c.ArtifactDir)
	if err != nil {
		log.Fatal().Err(err).Msg("artifact load failed")
	}
	log.Info().
		Str("version", bundle.Meta.Version).
		Strs("targets", bundle.Meta.Targets).
		Int("features", len(bundle.Features)).
		Msg("model bundle loaded")

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	mw.ModelAgeSet(bundle.Age().Seconds())

	vec, err := vectorize.New(bundle.Features, bundle.Encoders, bundle.Scaler, bundle.Selected)
	if err != nil {
		log.Fatal().Err(err).Msg("vectorizer construction failed")
	}

	targets := make([]model.TargetSpec, 0, len(bundle.Meta.Targets))
	for _, name := range bundle.Meta.Targets {
		targets = append(targets, model.TargetSpec{Name: name, Model: bundle.Models[name]})
	}
	pred, err := model.NewMultiPredictor(targets)
	if err != nil {
		log.Fatal().Err(err).Msg("predictor construction failed")
	}

	eng := explain.NewEngine(explain.Config{
		Features:           vec.Features(),
		TopK:               c.TopK,
		KernelSamples:      c.KernelSamples,
		BackgroundReplicas: c.BackgroundReplicas,
	}, mw)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	svc := service.New(service.Config{
		Vectorizer: vec,
		Predictor:  pred,
		Engine:     eng,
		Store:      store,
		Drift:      drift.NewMonitor(vec.Features(), mw),
		Metrics:    mw,
		Budget:     c.LatencyBudget,
	})

	startMetricsServer(ctx, c)

	api := server.New(svc, server.Info{
		Version:   bundle.Meta.Version,
		TrainedAt: bundle.Meta.TrainedAt,
		Accuracy:  bundle.Meta.Accuracy,
		Targets:   bundle.Meta.Targets,
		Features:  vec.Features(),
	}, c.ListenPort)

	go func() {
		if err := api.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("prediction server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, api)
}

// initializeStorage opens the prediction history store when DATA_PATH is
// configured. History is optional; a failure here degrades, not aborts.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
		return nil
	}
	return store
}

// startMetricsServer starts the Prometheus metrics HTTP server.
func startMetricsServer(ctx context.Context, c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := srv.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// waitForShutdown blocks until a signal arrives, then drains the API
// server with a timeout.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, api *server.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
