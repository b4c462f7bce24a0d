package analytics

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"arcade/internal/achievements"
	"arcade/internal/db"
	"arcade/internal/games"
)

type fakeSource struct {
	runs    []db.Run
	players map[string]*db.Player
	err     error
	filters []db.RunFilter
}

func (f *fakeSource) ListRuns(ctx context.Context, filter db.RunFilter) ([]db.Run, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	var out []db.Run
	for _, r := range f.runs {
		if filter.PlayerID != "" && r.PlayerID != filter.PlayerID {
			continue
		}
		if filter.GameID != "" && r.GameID != filter.GameID {
			continue
		}
		if filter.Difficulty != "" && r.Difficulty != filter.Difficulty {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeSource) BestRuns(ctx context.Context, difficulty string, limit int) ([]db.BestRun, error) {
	runs, err := f.ListRuns(ctx, db.RunFilter{Difficulty: difficulty})
	if err != nil {
		return nil, err
	}
	var out []db.BestRun
	for _, e := range Leaderboard(runs, limit) {
		handle := e.Handle
		out = append(out, db.BestRun{
			PlayerID:   e.PlayerID,
			Handle:     &handle,
			BestScore:  e.BestScore,
			GameID:     e.GameID,
			AchievedAt: db.DBTime{Time: e.AchievedAt},
			Rank:       e.Rank,
		})
	}
	return out, nil
}

func (f *fakeSource) GameRunStats(ctx context.Context, gameID, difficulty string, since time.Time) (db.RunStats, error) {
	runs, err := f.ListRuns(ctx, db.RunFilter{GameID: gameID, Difficulty: difficulty})
	if err != nil {
		return db.RunStats{}, err
	}
	s := ComputeGameStats(gameID, games.Difficulty(difficulty), runs, since, 0)
	out := db.RunStats{TotalRuns: s.TotalRuns, PlayersOnline: s.PlayersOnline}
	if len(runs) > 0 {
		sum := 0
		for _, r := range runs {
			sum += r.NormalizedScore
		}
		out.BestScore = sql.NullInt64{Int64: int64(*s.BestScore), Valid: true}
		out.AvgScore = sql.NullFloat64{Float64: float64(sum) / float64(len(runs)), Valid: true}
	}
	return out, nil
}

func (f *fakeSource) GetPlayer(ctx context.Context, id string) (*db.Player, error) {
	if p, ok := f.players[id]; ok {
		return p, nil
	}
	return nil, db.ErrNotFound
}

func TestGetProfileThreeGames(t *testing.T) {
	id := uuid.NewString()
	src := &fakeSource{
		players: map[string]*db.Player{id: {ID: id, Handle: strPtr("Ace"), CreatedAt: base}},
		runs: []db.Run{
			{ID: 1, PlayerID: id, GameID: "reaction-rush", NormalizedScore: 8400, RawValue: 180, RawUnit: "ms", CreatedAt: base},
			{ID: 2, PlayerID: id, GameID: "memory-grid", NormalizedScore: 8200, RawValue: 82, RawUnit: "%", CreatedAt: base.Add(time.Minute)},
			{ID: 3, PlayerID: id, GameID: "spray-control", NormalizedScore: 7800, RawValue: 26, RawUnit: "hits", CreatedAt: base.Add(2 * time.Minute)},
		},
	}
	q := NewQueries(src, 0, 0)

	p, err := q.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile() error: %v", err)
	}
	if p.Player == nil || p.Player.Avatar.Initial != "A" {
		t.Fatalf("Player = %+v, want Ace with avatar", p.Player)
	}
	if p.TotalGames != 3 {
		t.Errorf("TotalGames = %d, want 3", p.TotalGames)
	}
	if len(p.PerGame) != 3 {
		t.Errorf("len(PerGame) = %d, want 3", len(p.PerGame))
	}
	// ratings 70, 68, 65
	if p.ArcadeRating == nil || *p.ArcadeRating != 68 {
		t.Errorf("ArcadeRating = %v, want 68", p.ArcadeRating)
	}
	if p.Strongest == nil || p.Strongest.GameID != games.ReactionRush || p.Strongest.Score != 70 {
		t.Errorf("Strongest = %+v, want reaction-rush 70", p.Strongest)
	}
	if p.Weakest == nil || p.Weakest.GameID != games.SprayControl {
		t.Errorf("Weakest = %+v, want spray-control", p.Weakest)
	}
	if len(p.RecentRuns) != 3 || p.RecentRuns[0].GameID != "spray-control" {
		t.Errorf("RecentRuns = %+v, want spray-control first", p.RecentRuns)
	}
	if len(p.Achievements) != 2 || p.Achievements[0].ID != achievements.FirstBlood || p.Achievements[1].ID != achievements.ReactionDemon {
		t.Errorf("Achievements = %+v, want first-blood and reaction-demon", p.Achievements)
	}
}

func TestGetProfileUnknownPlayer(t *testing.T) {
	q := NewQueries(&fakeSource{}, 0, 0)

	p, err := q.GetProfile(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("GetProfile() error: %v", err)
	}
	if p.Player != nil || p.TotalGames != 0 || p.ArcadeRating != nil {
		t.Errorf("profile = %+v, want empty", p)
	}
	if p.PerGame == nil || p.RecentRuns == nil || p.Achievements == nil {
		t.Error("empty profile lists should be non-nil")
	}
}

func TestGetProfileMalformedID(t *testing.T) {
	src := &fakeSource{}
	q := NewQueries(src, 0, 0)

	p, err := q.GetProfile(context.Background(), "not-a-uuid")
	if err != nil {
		t.Fatalf("GetProfile() error: %v", err)
	}
	if p.TotalGames != 0 {
		t.Errorf("TotalGames = %d, want 0", p.TotalGames)
	}
	if len(src.filters) != 0 {
		t.Error("malformed id should not reach the store")
	}
}

func TestGetLeaderboardPassesDifficulty(t *testing.T) {
	src := &fakeSource{runs: []db.Run{
		{PlayerID: "p1", GameID: "reaction-rush", NormalizedScore: 100, Difficulty: "Hard", CreatedAt: base},
		{PlayerID: "p2", GameID: "reaction-rush", NormalizedScore: 200, Difficulty: "Easy", CreatedAt: base},
	}}
	q := NewQueries(src, 0, 0)

	entries, err := q.GetLeaderboard(context.Background(), games.Hard)
	if err != nil {
		t.Fatalf("GetLeaderboard() error: %v", err)
	}
	if len(entries) != 1 || entries[0].PlayerID != "p1" {
		t.Errorf("entries = %+v, want only p1", entries)
	}

	entries, _ = q.GetLeaderboard(context.Background(), "")
	if len(entries) != 2 {
		t.Errorf("len(entries) = %d, want 2 with no filter", len(entries))
	}
}

func TestGetGameStatsUsesClock(t *testing.T) {
	src := &fakeSource{runs: []db.Run{
		{PlayerID: "p1", GameID: "drop-royale", NormalizedScore: 4000, CreatedAt: base},
	}}
	q := NewQueries(src, time.Minute, 0)
	q.Now = func() time.Time { return base.Add(30 * time.Second) }

	stats, err := q.GetGameStats(context.Background(), "drop-royale", "")
	if err != nil {
		t.Fatalf("GetGameStats() error: %v", err)
	}
	if stats.PlayersOnline != 1 {
		t.Errorf("PlayersOnline = %d, want 1", stats.PlayersOnline)
	}

	q.Now = func() time.Time { return base.Add(2 * time.Minute) }
	stats, _ = q.GetGameStats(context.Background(), "drop-royale", "")
	if stats.PlayersOnline != 0 {
		t.Errorf("PlayersOnline = %d, want 0 outside window", stats.PlayersOnline)
	}
}

func TestQueriesWrapStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	q := NewQueries(&fakeSource{err: boom}, 0, 0)
	ctx := context.Background()

	if _, err := q.GetLeaderboard(ctx, ""); !errors.Is(err, boom) {
		t.Errorf("GetLeaderboard() error = %v, want boom", err)
	}
	if _, err := q.GetGameStats(ctx, "memory-grid", ""); !errors.Is(err, boom) {
		t.Errorf("GetGameStats() error = %v, want boom", err)
	}
	if _, err := q.GetProfile(ctx, uuid.NewString()); !errors.Is(err, boom) {
		t.Errorf("GetProfile() error = %v, want boom", err)
	}
}
