package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"roomserve/internal/database"
	"roomserve/internal/engine"
	"roomserve/internal/schedule"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultSnapshotTTL = 5 * time.Second

// Options configures the HTTP server. Cache may be nil, which disables
// snapshot caching; RateLimit zero disables throttling.
type Options struct {
	Addr        string
	Cache       *redis.Client
	SnapshotTTL time.Duration
	RateLimit   rate.Limit
	RateBurst   int
}

// HTTPServer serves the three entry surfaces: the REST routes, the tool
// protocol endpoint and the client snapshot. All of them delegate to the
// same engine; none holds scheduling logic of its own.
type HTTPServer struct {
	engine      *engine.Engine
	cache       *redis.Client
	snapshotTTL time.Duration
	limiter     *rate.Limiter
	logger      *zerolog.Logger
	server      *http.Server
}

// NewHTTPServer wires routes and middleware.
func NewHTTPServer(eng *engine.Engine, logger *zerolog.Logger, opts Options) *HTTPServer {
	s := &HTTPServer{
		engine:      eng,
		cache:       opts.Cache,
		snapshotTTL: opts.SnapshotTTL,
		logger:      logger,
	}
	if s.snapshotTTL <= 0 {
		s.snapshotTTL = defaultSnapshotTTL
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/rooms", s.handleRooms)
	mux.HandleFunc("/api/reservations", s.handleReservations)
	mux.HandleFunc("/api/reservations/export", s.handleExport)
	mux.HandleFunc("/api/reservations/", s.handleReservationByID)
	mux.HandleFunc("/api/availability", s.handleAvailability)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/tools", s.handleTools)

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.middleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the wired handler chain, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine errors onto HTTP statuses. Validation and
// domain rule rejections are client errors; only store failures surface as
// 5xx.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsValidation(err),
		errors.Is(err, schedule.ErrRangeInvalid),
		errors.Is(err, schedule.ErrOutsideHours),
		errors.Is(err, schedule.ErrGranularity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, schedule.ErrRoomUnknown),
		errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrOverlap):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// rejectionReason labels a create failure for the rejected-proposal counter.
func rejectionReason(err error) string {
	switch {
	case engine.IsValidation(err):
		return "validation"
	case errors.Is(err, schedule.ErrRangeInvalid):
		return "range_invalid"
	case errors.Is(err, schedule.ErrOutsideHours):
		return "outside_hours"
	case errors.Is(err, schedule.ErrGranularity):
		return "granularity"
	case errors.Is(err, schedule.ErrRoomUnknown):
		return "room_unknown"
	case errors.Is(err, schedule.ErrOverlap):
		return "overlap"
	case errors.Is(err, engine.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
