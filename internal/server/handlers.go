package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arcade/internal/analytics"
	"arcade/internal/games"
	"arcade/internal/recorder"
)

const maxRunBody = 64 << 10

func (s *Server) handleRecordRun(w http.ResponseWriter, r *http.Request) {
	var req recorder.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBody)).Decode(&req); err != nil {
		s.Metrics.rejected.WithLabelValues("decode").Inc()
		writeError(w, http.StatusBadRequest, "Missing or invalid fields")
		return
	}

	run, err := s.Recorder.Record(r.Context(), req)
	var verr *recorder.ValidationError
	switch {
	case errors.As(err, &verr):
		s.Metrics.rejected.WithLabelValues("invalid_" + verr.Field).Inc()
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	case err != nil:
		s.Metrics.rejected.WithLabelValues("storage").Inc()
		s.Logger.Error("POST /runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store run")
		return
	}

	s.Metrics.runs.WithLabelValues(run.GameID, run.Difficulty).Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":              true,
		"normalizedScore": run.NormalizedScore,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	difficulty := games.ParseDifficultyFilter(r.URL.Query().Get("difficulty"))

	entries, err := s.Queries.GetLeaderboard(r.Context(), difficulty)
	if err != nil {
		s.Logger.Error("GET /leaderboard failed", "error", err)
		entries = nil
	}
	if entries == nil {
		entries = []analytics.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleGameStats(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")
	difficulty := games.ParseDifficultyFilter(r.URL.Query().Get("difficulty"))

	stats, err := s.Queries.GetGameStats(r.Context(), gameID, difficulty)
	if err != nil {
		s.Logger.Error("GET /game-stats failed", "game_id", gameID, "error", err)
		empty := analytics.ComputeGameStats(gameID, difficulty, nil, s.Queries.Now(), s.Queries.OnlineWindow)
		stats = &empty
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerId")

	profile, err := s.Queries.GetProfile(r.Context(), playerID)
	if err != nil {
		s.Logger.Error("GET /profile failed", "player_id", playerID, "error", err)
		profile = analytics.EmptyProfile()
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"games":  games.All(),
		"warmup": games.Warmup,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			s.Logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error"})
			return
		}
	}
	body := map[string]any{"status": "ok"}
	if s.Hub != nil {
		body["viewers"] = s.Hub.Count()
	}
	writeJSON(w, http.StatusOK, body)
}
