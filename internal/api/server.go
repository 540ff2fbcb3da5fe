// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api serves the chart and evidence parsers over HTTP, plus search
// over the results store when one is configured.
// Implements: HTTP parse endpoints; docs/ARCHITECTURE § API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/guideline-engine/internal/store"
)

// DefaultMaxBodyBytes bounds an uploaded converter document.
const DefaultMaxBodyBytes = 64 << 20

// Config holds server settings.
type Config struct {
	// MaxBodyBytes bounds request bodies (default 64 MiB).
	MaxBodyBytes int64

	// Store enables the search endpoints. Nil leaves them unregistered.
	Store *store.Store
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	store  *store.Store
	log    *slog.Logger
	cfg    Config
}

// NewServer creates and configures the HTTP server.
func NewServer(cfg Config, log *slog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{store: cfg.Store, log: log, cfg: cfg}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/charts", s.handleCharts)
		r.Post("/evidence", s.handleEvidence)
		if s.store != nil {
			r.Get("/recommendations", s.handleSearch)
			r.Get("/documents", s.handleDocuments)
			r.Get("/evidence/{pmid}", s.handleEvidenceByPMID)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
