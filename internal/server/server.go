// Package server exposes the catalog, watch progress and the playback event
// channel over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/treefix50/watchtrack/internal/auth"
	"github.com/treefix50/watchtrack/internal/catalog"
	"github.com/treefix50/watchtrack/internal/log"
	"github.com/treefix50/watchtrack/internal/storage"
	"github.com/treefix50/watchtrack/internal/tracker"
)

const shutdownTimeout = 3 * time.Second

// Options configure a Server.
type Options struct {
	Addr string

	// Tracker, Catalog and Store are required.
	Tracker *tracker.Tracker
	Catalog *catalog.Catalog
	Store   *storage.StateStore

	// Loader is rescanned by the maintenance job when set.
	Loader *catalog.Loader
	// Verifier guards mutating routes; nil disables authentication.
	Verifier *auth.Verifier

	CORSOrigins     []string
	RateLimitRPM    int
	OTelEnabled     bool
	MaintenanceCron string

	SampleInterval       time.Duration
	PositionSaveInterval time.Duration
}

// Server is the watchtrack HTTP server.
type Server struct {
	opts    Options
	http    *http.Server
	handler http.Handler
	cron    *cron.Cron
	logger  zerolog.Logger

	upgrader websocket.Upgrader

	watchMu sync.Mutex
	watch   *watchConn
}

// New builds the router and the maintenance schedule.
func New(opts Options) (*Server, error) {
	if opts.Tracker == nil || opts.Catalog == nil || opts.Store == nil {
		return nil, errors.New("server: tracker, catalog and store are required")
	}

	s := &Server{
		opts:   opts,
		logger: log.WithComponent("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.CORSOrigins),
		},
	}

	if opts.MaintenanceCron != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(opts.MaintenanceCron, s.runMaintenance); err != nil {
			return nil, err
		}
	}

	s.handler = s.routes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(corsHandler(s.opts.CORSOrigins))
	if s.opts.RateLimitRPM > 0 {
		r.Use(rateLimit(s.opts.RateLimitRPM, time.Minute))
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/videos", s.handleLibrary)
		r.Route("/videos/{id}", func(r chi.Router) {
			r.Get("/", s.handleVideo)
			r.Get("/stream", s.handleStream)
			r.Get("/progress", s.handleProgress)

			r.Group(func(r chi.Router) {
				r.Use(requireAPIKey(s.opts.Verifier))
				r.Post("/segments", s.handleSegment)
				r.Put("/position", s.handlePosition)
				r.Get("/watch", s.handleWatch)
			})
		})

		r.With(requireAPIKey(s.opts.Verifier)).Get("/export", s.handleExport)
	})

	if s.opts.OTelEnabled {
		return otelHandler(r, "watchtrack")
	}
	return r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Start starts the maintenance schedule and serves until Close.
func (s *Server) Start() error {
	if s.cron != nil {
		s.cron.Start()
	}
	s.logger.Info().Str("addr", s.opts.Addr).Msg("listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close ends the active playback session, stops the schedule and shuts the
// HTTP server down.
func (s *Server) Close() error {
	s.closeWatch()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", textContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeTrackerError maps tracker sentinels to client errors.
func (s *Server) writeTrackerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tracker.ErrNoVideo):
		writeError(w, http.StatusBadRequest, "no video selected")
	case errors.Is(err, tracker.ErrUnknownVideo):
		writeError(w, http.StatusNotFound, "video not found")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
