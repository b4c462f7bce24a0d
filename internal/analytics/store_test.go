package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"arcade/internal/db"
	"arcade/internal/games"
)

func getStoreDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()
	database, err := db.Connect(ctx, "sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// seedStore inserts a mix of tied scores, difficulties and timestamps.
func seedStore(t *testing.T, database *db.DB) {
	t.Helper()
	ctx := context.Background()
	alice := "550e8400-e29b-41d4-a716-446655440011"
	bob := "550e8400-e29b-41d4-a716-446655440012"
	carol := "550e8400-e29b-41d4-a716-446655440013"
	dave := "550e8400-e29b-41d4-a716-446655440014"

	database.UpsertPlayer(ctx, alice, strPtr("alice"), base)
	database.UpsertPlayer(ctx, bob, nil, base)
	database.UpsertPlayer(ctx, carol, strPtr("carol"), base)
	database.UpsertPlayer(ctx, dave, strPtr("dave"), base)

	runs := []db.Run{
		{PlayerID: alice, GameID: "reaction-rush", NormalizedScore: 8400, RawValue: 180, RawUnit: "ms", Difficulty: "Medium", CreatedAt: base},
		{PlayerID: alice, GameID: "memory-grid", NormalizedScore: 8400, RawValue: 84, RawUnit: "%", Difficulty: "Hard", CreatedAt: base.Add(time.Minute)},
		{PlayerID: bob, GameID: "reaction-rush", NormalizedScore: 8400, RawValue: 180, RawUnit: "ms", Difficulty: "Hard", CreatedAt: base.Add(2 * time.Minute)},
		{PlayerID: bob, GameID: "reaction-rush", NormalizedScore: 6000, RawValue: 300, RawUnit: "ms", Difficulty: "Easy", CreatedAt: base.Add(3 * time.Minute)},
		{PlayerID: carol, GameID: "spray-control", NormalizedScore: 9100, RawValue: 91, RawUnit: "hits", Difficulty: "Hard", CreatedAt: base.Add(4 * time.Minute)},
		{PlayerID: carol, GameID: "reaction-rush", NormalizedScore: 7001, RawValue: 240, RawUnit: "ms", Difficulty: "Medium", CreatedAt: base.Add(10 * time.Minute)},
		{PlayerID: dave, GameID: "reaction-rush", NormalizedScore: 5000, RawValue: 400, RawUnit: "ms", Difficulty: "Medium", CreatedAt: base.Add(11 * time.Minute)},
	}
	for i := range runs {
		if err := database.InsertRun(ctx, &runs[i]); err != nil {
			t.Fatalf("InsertRun() error: %v", err)
		}
	}
}

func TestStoreLeaderboardMatchesReference(t *testing.T) {
	database := getStoreDB(t)
	seedStore(t, database)
	ctx := context.Background()

	for _, limit := range []int{100, 2} {
		q := NewQueries(database, 0, limit)
		for _, d := range []games.Difficulty{"", games.Easy, games.Medium, games.Hard} {
			got, err := q.GetLeaderboard(ctx, d)
			if err != nil {
				t.Fatalf("GetLeaderboard(%q) error: %v", d, err)
			}
			runs, err := database.ListRuns(ctx, db.RunFilter{Difficulty: string(d)})
			if err != nil {
				t.Fatalf("ListRuns() error: %v", err)
			}
			want := Leaderboard(runs, limit)

			if len(got) != len(want) {
				t.Fatalf("limit %d difficulty %q: len = %d, want %d", limit, d, len(got), len(want))
			}
			for i := range want {
				g, w := got[i], want[i]
				if g.PlayerID != w.PlayerID || g.Handle != w.Handle || g.BestScore != w.BestScore ||
					g.GameID != w.GameID || g.Rank != w.Rank || !g.AchievedAt.Equal(w.AchievedAt) {
					t.Errorf("limit %d difficulty %q row %d = %+v, want %+v", limit, d, i, g, w)
				}
			}
		}
	}
}

func TestStoreLeaderboardTies(t *testing.T) {
	database := getStoreDB(t)
	seedStore(t, database)

	entries, err := NewQueries(database, 0, 0).GetLeaderboard(context.Background(), "")
	if err != nil {
		t.Fatalf("GetLeaderboard() error: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4", len(entries))
	}
	// carol 9100, then alice and bob tied on 8400 in arrival order, then dave.
	wantRanks := []int{1, 2, 2, 3}
	for i, e := range entries {
		if e.Rank != wantRanks[i] {
			t.Errorf("entries[%d].Rank = %d, want %d", i, e.Rank, wantRanks[i])
		}
	}
	if entries[1].Handle != "alice" || entries[1].GameID != "reaction-rush" {
		t.Errorf("entries[1] = %+v, want alice's earliest 8400 on reaction-rush", entries[1])
	}
	if entries[2].PlayerID != "550e8400-e29b-41d4-a716-446655440012" {
		t.Errorf("entries[2].PlayerID = %q, want bob", entries[2].PlayerID)
	}
}

func TestStoreGameStatsMatchesReference(t *testing.T) {
	database := getStoreDB(t)
	seedStore(t, database)
	ctx := context.Background()

	q := NewQueries(database, 5*time.Minute, 0)
	for _, now := range []time.Time{base.Add(12 * time.Minute), base.Add(7 * time.Minute), base.Add(time.Hour)} {
		q.Now = func() time.Time { return now }
		for _, gameID := range []string{"reaction-rush", "spray-control", "drop-royale"} {
			for _, d := range []games.Difficulty{"", games.Easy, games.Medium, games.Hard} {
				got, err := q.GetGameStats(ctx, gameID, d)
				if err != nil {
					t.Fatalf("GetGameStats() error: %v", err)
				}
				runs, err := database.ListRuns(ctx, db.RunFilter{GameID: gameID, Difficulty: string(d)})
				if err != nil {
					t.Fatalf("ListRuns() error: %v", err)
				}
				want := ComputeGameStats(gameID, d, runs, now, q.OnlineWindow)

				if got.TotalRuns != want.TotalRuns || got.PlayersOnline != want.PlayersOnline ||
					!equalIntPtr(got.BestScore, want.BestScore) || !equalIntPtr(got.AvgScore, want.AvgScore) ||
					!equalStrPtr(got.Difficulty, want.Difficulty) {
					t.Errorf("%s %q at %v = %+v, want %+v", gameID, d, now, got, want)
				}
			}
		}
	}
}

func TestStoreGameStatsOnlineWindow(t *testing.T) {
	database := getStoreDB(t)
	seedStore(t, database)

	q := NewQueries(database, 5*time.Minute, 0)
	q.Now = func() time.Time { return base.Add(12 * time.Minute) }

	stats, err := q.GetGameStats(context.Background(), "reaction-rush", "")
	if err != nil {
		t.Fatalf("GetGameStats() error: %v", err)
	}
	if stats.TotalRuns != 5 {
		t.Errorf("TotalRuns = %d, want 5", stats.TotalRuns)
	}
	// carol at +10m and dave at +11m are within five minutes of +12m.
	if stats.PlayersOnline != 2 {
		t.Errorf("PlayersOnline = %d, want 2", stats.PlayersOnline)
	}
	if stats.BestScore == nil || *stats.BestScore != 8400 {
		t.Errorf("BestScore = %v, want 8400", stats.BestScore)
	}
	// (8400 + 8400 + 6000 + 7001 + 5000) / 5 = 6960.2
	if stats.AvgScore == nil || *stats.AvgScore != 6960 {
		t.Errorf("AvgScore = %v, want 6960", stats.AvgScore)
	}
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
