package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"arcade/internal/analytics"
	"arcade/internal/broadcast"
	"arcade/internal/config"
	"arcade/internal/db"
	"arcade/internal/events"
	"arcade/internal/recorder"
	"arcade/internal/wshub"
)

// New wires the run pipeline on top of an open database:
// recorder -> bus -> broadcaster -> (SSE subscribers, websocket hub).
func New(cfg config.Config, database *db.DB, logger *slog.Logger) *Server {
	bus := events.NewBus()
	hub := wshub.NewHub()
	return &Server{
		DB:          database,
		Recorder:    recorder.New(database, bus, recorder.Policy(cfg.ScorePolicy)),
		Queries:     analytics.NewQueries(database, cfg.OnlineWindow, cfg.LeaderboardLimit),
		Broadcaster: broadcast.NewBroadcaster(bus, hub),
		Bus:         bus,
		Hub:         hub,
		Metrics:     NewMetrics(),
		Limiter:     NewRateLimiter(cfg.RunsPerMinute, cfg.RunsBurst),
		Logger:      logger,
	}
}

// Run connects, migrates and serves until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	database, err := db.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	srv := New(cfg, database, logger)
	defer srv.Close()
	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpSrv.Addr, "driver", database.Driver(), "score_policy", srv.Recorder.Policy())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Close stops the run pipeline. Events already queued reach subscribers first.
func (s *Server) Close() {
	if s.Bus == nil {
		return
	}
	s.Bus.Close()
	if s.Broadcaster != nil {
		<-s.Broadcaster.Done()
	}
}
