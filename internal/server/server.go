package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"arcade/internal/analytics"
	"arcade/internal/broadcast"
	"arcade/internal/events"
	"arcade/internal/recorder"
	"arcade/internal/wshub"
)

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	DB          Pinger
	Recorder    *recorder.Recorder
	Queries     *analytics.Queries
	Broadcaster *broadcast.Broadcaster
	Bus         *events.Bus
	Hub         *wshub.Hub
	Metrics     *Metrics
	Limiter     *RateLimiter
	Logger      *slog.Logger
}

// Routes builds the router. API routes are served at the root and under /api.
func (s *Server) Routes() http.Handler {
	if s.Metrics == nil {
		s.Metrics = NewMetrics()
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.Metrics.Middleware)
	r.Use(logRequests(s.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.Metrics.Handler())
	r.Get("/events", s.handleEvents)
	r.Get("/ws", s.handleWS)

	api := func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		if s.Limiter != nil {
			r.With(s.Limiter.Middleware).Post("/runs", s.handleRecordRun)
		} else {
			r.Post("/runs", s.handleRecordRun)
		}
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/game-stats/{gameId}", s.handleGameStats)
		r.Get("/profile/{playerId}", s.handleProfile)
		r.Get("/games", s.handleGames)
	}
	r.Group(api)
	r.Route("/api", api)

	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
