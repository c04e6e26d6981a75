// Package server exposes the prediction service over HTTP: POST /predict
// for single-record inference, GET /health for liveness, GET /model/info
// for bundle metadata, and GET /history for recently served predictions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"healthrisk-api/internal/schema"
	"healthrisk-api/internal/service"
)

// Info is the static model metadata reported by /model/info.
type Info struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Accuracy  float64   `json:"accuracy"`
	Targets   []string  `json:"targets"`
	Features  []string  `json:"features"`
}

// Server serves the prediction API.
type Server struct {
	svc    *service.Service
	info   Info
	server *http.Server
}

type errorResponse struct {
	Status string `json:"status"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail"`
}

func New(svc *service.Service, info Info, port int) *Server {
	s := &Server{svc: svc, info: info}

	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/model/info", s.handleModelInfo)
	mux.HandleFunc("/history", s.handleHistory)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the root handler, which keeps httptest wiring simple.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var rec schema.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status: "error",
			Detail: fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	resp, err := s.svc.Handle(r.Context(), &rec)
	if err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Status: "error",
				Field:  ve.Field,
				Detail: ve.Error(),
			})
			return
		}
		// Internal faults are reported generically, without leaking
		// computation details to the client.
		log.Error().Err(err).Msg("prediction request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status: "error",
			Detail: "internal error",
		})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// The process refuses to start without a loaded bundle, so a served
	// health check implies the model is present.
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": true,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.info)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Status: "error",
				Field:  "limit",
				Detail: "limit must be an integer in [1,500]",
			})
			return
		}
		limit = n
	}

	entries, err := s.svc.History(limit)
	if err != nil {
		log.Error().Err(err).Msg("history query failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status: "error",
			Detail: "internal error",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"count":   len(entries),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// logRequests logs one line per request with method, path, status and
// duration.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
