package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcade/internal/analytics"
	"arcade/internal/config"
	"arcade/internal/db"
	"arcade/internal/recorder"
	"arcade/internal/wshub"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	ctx := context.Background()
	database, err := db.Connect(ctx, config.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx))
	t.Cleanup(func() { database.Close() })

	cfg := config.Default()
	srv := New(cfg, database, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv.Limiter = nil

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postRun(t *testing.T, baseURL string, body map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(baseURL+"/runs", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func runBody(playerID, gameID string, score, raw float64) map[string]any {
	return map[string]any{
		"playerId":        playerID,
		"playerName":      "Ace",
		"gameId":          gameID,
		"normalizedScore": score,
		"rawValue":        raw,
		"rawUnit":         "ms",
		"difficulty":      "Medium",
	}
}

func TestRecordRun(t *testing.T) {
	_, ts := newTestServer(t)

	resp, out := postRun(t, ts.URL, runBody(uuid.NewString(), "reaction-rush", 8400, 180))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, float64(8400), out["normalizedScore"])
}

func TestRecordRunUnderAPIPrefix(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := postRun(t, ts.URL+"/api", runBody(uuid.NewString(), "reaction-rush", 8400, 180))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRecordRunRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing player", map[string]any{"gameId": "reaction-rush", "normalizedScore": 1, "rawValue": 1}},
		{"bad player", map[string]any{"playerId": "nope", "gameId": "reaction-rush", "normalizedScore": 1, "rawValue": 1}},
		{"unknown game", map[string]any{"playerId": uuid.NewString(), "gameId": "pong", "normalizedScore": 1, "rawValue": 1}},
		{"missing score", map[string]any{"playerId": uuid.NewString(), "gameId": "reaction-rush", "rawValue": 1}},
		{"string score", map[string]any{"playerId": uuid.NewString(), "gameId": "reaction-rush", "normalizedScore": "high", "rawValue": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := postRun(t, ts.URL, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestRecordRunWithoutRawValue(t *testing.T) {
	_, ts := newTestServer(t)

	resp, out := postRun(t, ts.URL, map[string]any{
		"playerId":        uuid.NewString(),
		"gameId":          "drop-royale",
		"normalizedScore": 4000,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, float64(4000), out["normalizedScore"])
}

func TestRecordRunMalformedJSON(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/runs", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing or invalid fields", out["error"])
}

type failingStore struct{}

func (failingStore) UpsertPlayer(ctx context.Context, id string, handle *string, now time.Time) error {
	return errors.New("disk full")
}

func (failingStore) InsertRun(ctx context.Context, r *db.Run) error {
	return errors.New("disk full")
}

func TestRecordRunStorageFailure(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.Recorder = recorder.New(failingStore{}, nil, recorder.PolicyTrust)

	resp, out := postRun(t, ts.URL, runBody(uuid.NewString(), "reaction-rush", 8400, 180))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to store run", out["error"])
}

func TestRecordRunRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.Limiter = NewRateLimiter(1, 1)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	player := uuid.NewString()
	resp, _ := postRun(t, ts.URL, runBody(player, "reaction-rush", 8400, 180))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := postRun(t, ts.URL, runBody(player, "reaction-rush", 8400, 180))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Too many requests", out["error"])
}

func TestLeaderboard(t *testing.T) {
	_, ts := newTestServer(t)

	var empty struct {
		Entries []analytics.LeaderboardEntry `json:"entries"`
	}
	getJSON(t, ts.URL+"/leaderboard", &empty)
	require.NotNil(t, empty.Entries)
	assert.Empty(t, empty.Entries)

	a, b := uuid.NewString(), uuid.NewString()
	postRun(t, ts.URL, runBody(a, "reaction-rush", 8000, 200))
	postRun(t, ts.URL, runBody(b, "reaction-rush", 9000, 160))
	postRun(t, ts.URL, runBody(a, "reaction-rush", 7000, 240))

	var board struct {
		Entries []analytics.LeaderboardEntry `json:"entries"`
	}
	resp := getJSON(t, ts.URL+"/api/leaderboard?difficulty=All", &board)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, b, board.Entries[0].PlayerID)
	assert.Equal(t, 9000, board.Entries[0].BestScore)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, a, board.Entries[1].PlayerID)
	assert.Equal(t, 8000, board.Entries[1].BestScore)
	assert.Equal(t, 2, board.Entries[1].Rank)
	assert.Equal(t, "Ace", board.Entries[1].Handle)

	var hard struct {
		Entries []analytics.LeaderboardEntry `json:"entries"`
	}
	getJSON(t, ts.URL+"/leaderboard?difficulty=Hard", &hard)
	assert.Empty(t, hard.Entries)
}

func TestGameStats(t *testing.T) {
	_, ts := newTestServer(t)

	var empty analytics.GameStats
	getJSON(t, ts.URL+"/game-stats/memory-grid", &empty)
	assert.Equal(t, "memory-grid", empty.GameID)
	assert.Nil(t, empty.BestScore)
	assert.Nil(t, empty.AvgScore)
	assert.Nil(t, empty.Difficulty)
	assert.Zero(t, empty.TotalRuns)
	assert.Zero(t, empty.PlayersOnline)

	p := uuid.NewString()
	postRun(t, ts.URL, runBody(p, "memory-grid", 8000, 80))
	postRun(t, ts.URL, runBody(p, "memory-grid", 9001, 90))

	var stats analytics.GameStats
	getJSON(t, ts.URL+"/game-stats/memory-grid?difficulty=Medium", &stats)
	require.NotNil(t, stats.BestScore)
	require.NotNil(t, stats.AvgScore)
	require.NotNil(t, stats.Difficulty)
	assert.Equal(t, 9001, *stats.BestScore)
	assert.Equal(t, 8501, *stats.AvgScore)
	assert.Equal(t, "Medium", *stats.Difficulty)
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.PlayersOnline)
}

func TestProfile(t *testing.T) {
	_, ts := newTestServer(t)

	var unknown analytics.Profile
	getJSON(t, ts.URL+"/profile/"+uuid.NewString(), &unknown)
	assert.Nil(t, unknown.Player)
	assert.Zero(t, unknown.TotalGames)
	assert.Nil(t, unknown.ArcadeRating)
	assert.NotNil(t, unknown.PerGame)
	assert.NotNil(t, unknown.RecentRuns)

	p := uuid.NewString()
	postRun(t, ts.URL, runBody(p, "reaction-rush", 8400, 180))

	var profile analytics.Profile
	getJSON(t, ts.URL+"/api/profile/"+p, &profile)
	require.NotNil(t, profile.Player)
	require.NotNil(t, profile.Player.Handle)
	assert.Equal(t, "Ace", *profile.Player.Handle)
	assert.Equal(t, 1, profile.TotalGames)
	require.NotNil(t, profile.ArcadeRating)
	assert.Equal(t, 70, *profile.ArcadeRating)
	require.Len(t, profile.PerGame, 1)
	assert.Equal(t, "reaction-rush", profile.PerGame[0].GameID)
	assert.Len(t, profile.RecentRuns, 1)
}

func TestGamesAndHealth(t *testing.T) {
	_, ts := newTestServer(t)

	var catalog struct {
		Games []map[string]any `json:"games"`
	}
	getJSON(t, ts.URL+"/games", &catalog)
	assert.Len(t, catalog.Games, 4)

	var health map[string]any
	resp := getJSON(t, ts.URL+"/health", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(0), health["viewers"])
}

func TestCloseStopsBroadcaster(t *testing.T) {
	srv, ts := newTestServer(t)
	postRun(t, ts.URL, runBody(uuid.NewString(), "reaction-rush", 8400, 180))

	srv.Close()
	select {
	case <-srv.Broadcaster.Done():
	case <-time.After(time.Second):
		t.Fatal("broadcaster still running after Close")
	}

	// runs are still stored once the live feed is down
	resp, body := postRun(t, ts.URL, runBody(uuid.NewString(), "reaction-rush", 8000, 200))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	postRun(t, ts.URL, runBody(uuid.NewString(), "reaction-rush", 8400, 180))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `arcade_runs_recorded_total{difficulty="Medium",game_id="reaction-rush"} 1`)
	assert.Contains(t, string(body), "arcade_requests_total")
}

func TestEventsStream(t *testing.T) {
	_, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	p := uuid.NewString()
	postRun(t, ts.URL, runBody(p, "reaction-rush", 8400, 180))

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	assert.Equal(t, "run", event)
	assert.Contains(t, data, p)
}

func TestWebSocketFeed(t *testing.T) {
	_, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	read := func() wshub.ServerMessage {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg wshub.ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	msg := read()
	assert.Equal(t, "viewers", msg.Type)
	assert.Equal(t, 1, msg.Viewers)

	p := uuid.NewString()
	postRun(t, ts.URL, runBody(p, "reaction-rush", 8400, 180))

	msg = read()
	assert.Equal(t, "run", msg.Type)
	assert.Equal(t, p, msg.PlayerID)
	assert.Equal(t, "Ace", msg.Name)
	assert.Equal(t, 8400, msg.Score)
}
