/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the read-only status API: the latest presence
// record, the loaded schedule, sync history, recent logs, and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/schulfunk/schulfunk/internal/config"
	"github.com/schulfunk/schulfunk/internal/events"
	"github.com/schulfunk/schulfunk/internal/history"
	"github.com/schulfunk/schulfunk/internal/logbuffer"
	"github.com/schulfunk/schulfunk/internal/presence"
	"github.com/schulfunk/schulfunk/internal/telemetry"
	"github.com/schulfunk/schulfunk/internal/timetable"
)

// Status is the /api/status response body.
type Status struct {
	State         string           `json:"state"`
	SinkConnected bool             `json:"sink_connected"`
	Update        *presence.Update `json:"update,omitempty"`
	UpdatedAt     *time.Time       `json:"updated_at,omitempty"`
}

// Server bundles the HTTP surface and the status cache fed by the event bus.
type Server struct {
	cfg       *config.Config
	logger    zerolog.Logger
	router    chi.Router
	http      *http.Server
	bus       *events.Bus
	store     *timetable.Store
	logBuffer *logbuffer.Buffer
	historyDB *history.Store

	mu     sync.RWMutex
	status Status

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server. historyDB may be nil when no DSN is configured.
func New(cfg *config.Config, store *timetable.Store, bus *events.Bus, logBuf *logbuffer.Buffer, historyDB *history.Store, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger.With().Str("component", "server").Logger(),
		router:    chi.NewRouter(),
		bus:       bus,
		store:     store,
		logBuffer: logBuf,
		historyDB: historyDB,
		status:    Status{State: "starting"},
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(telemetry.MetricsMiddleware)
	s.configureRoutes()

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.startStatusWorker()
	return s
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.http
}

// Close stops the status worker.
func (s *Server) Close() error {
	if s.bgCancel != nil {
		s.bgCancel()
		s.bgWG.Wait()
		s.bgCancel = nil
	}
	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/status/ws", s.handleStatusWS)
		r.Get("/schedule", s.handleSchedule)
		r.Get("/logs", s.handleLogs)
		if s.historyDB != nil {
			r.Get("/history", s.handleHistory)
		}
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Document())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.logBuffer.Recent(200))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.historyDB.Recent(r.Context(), 20)
	if err != nil {
		s.logger.Error().Err(err).Msg("history query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// startStatusWorker mirrors poller events into the status cache.
func (s *Server) startStatusWorker() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	updated := s.bus.Subscribe(events.EventPresenceUpdated)
	skipped := s.bus.Subscribe(events.EventPresenceSkipped)
	connected := s.bus.Subscribe(events.EventSinkConnected)

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		defer func() {
			s.bus.Unsubscribe(events.EventPresenceUpdated, updated)
			s.bus.Unsubscribe(events.EventPresenceSkipped, skipped)
			s.bus.Unsubscribe(events.EventSinkConnected, connected)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case payload := <-updated:
				s.applyUpdate(payload)
			case payload := <-skipped:
				s.applySkip(payload)
			case <-connected:
				s.mu.Lock()
				s.status.SinkConnected = true
				s.mu.Unlock()
			}
		}
	}()
}

func (s *Server) applyUpdate(payload events.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind, ok := payload["kind"].(string); ok {
		s.status.State = kind
	}
	if update, ok := payload["update"].(presence.Update); ok {
		s.status.Update = &update
	}
	if at, ok := payload["at"].(time.Time); ok {
		s.status.UpdatedAt = &at
	}
}

func (s *Server) applySkip(payload events.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind, ok := payload["kind"].(string); ok {
		s.status.State = kind
	}
	if at, ok := payload["at"].(time.Time); ok {
		s.status.UpdatedAt = &at
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Too late for an error status; the connection likely went away.
		return
	}
}
