package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"arcade/internal/achievements"
	"arcade/internal/db"
	"arcade/internal/games"
	"arcade/internal/rating"
	"arcade/internal/utility"
)

// Source is the read side of the run store. BestRuns and GameRunStats aggregate in
// the store; ListRuns is only used for one player's history.
type Source interface {
	ListRuns(ctx context.Context, f db.RunFilter) ([]db.Run, error)
	GetPlayer(ctx context.Context, id string) (*db.Player, error)
	BestRuns(ctx context.Context, difficulty string, limit int) ([]db.BestRun, error)
	GameRunStats(ctx context.Context, gameID, difficulty string, since time.Time) (db.RunStats, error)
}

type Queries struct {
	DB           Source
	OnlineWindow time.Duration
	Limit        int
	Now          func() time.Time
}

func NewQueries(src Source, onlineWindow time.Duration, limit int) *Queries {
	if onlineWindow <= 0 {
		onlineWindow = 5 * time.Minute
	}
	if limit <= 0 {
		limit = 100
	}
	return &Queries{DB: src, OnlineWindow: onlineWindow, Limit: limit, Now: time.Now}
}

// GetLeaderboard ranks players by their best run. An empty difficulty means all.
func (q *Queries) GetLeaderboard(ctx context.Context, difficulty games.Difficulty) ([]LeaderboardEntry, error) {
	rows, err := q.DB.BestRuns(ctx, string(difficulty), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, LeaderboardEntry{
			PlayerID:   r.PlayerID,
			Handle:     utility.DisplayName(r.PlayerID, r.Handle),
			BestScore:  r.BestScore,
			GameID:     r.GameID,
			Rank:       r.Rank,
			AchievedAt: r.AchievedAt.Time,
		})
	}
	return entries, nil
}

func (q *Queries) GetGameStats(ctx context.Context, gameID string, difficulty games.Difficulty) (*GameStats, error) {
	now := q.Now()
	agg, err := q.DB.GameRunStats(ctx, gameID, string(difficulty), now.Add(-q.OnlineWindow))
	if err != nil {
		return nil, fmt.Errorf("getting game stats: %w", err)
	}
	stats := ComputeGameStats(gameID, difficulty, nil, now, q.OnlineWindow)
	if agg.TotalRuns == 0 {
		return &stats, nil
	}
	stats.TotalRuns = agg.TotalRuns
	stats.PlayersOnline = agg.PlayersOnline
	if agg.BestScore.Valid {
		best := int(agg.BestScore.Int64)
		stats.BestScore = &best
	}
	if agg.AvgScore.Valid {
		avg := int(math.Round(agg.AvgScore.Float64))
		stats.AvgScore = &avg
	}
	return &stats, nil
}

// GetProfile summarizes one player. Unknown or malformed ids yield an empty profile.
func (q *Queries) GetProfile(ctx context.Context, playerID string) (*Profile, error) {
	profile := EmptyProfile()

	parsed, err := uuid.Parse(playerID)
	if err != nil {
		return profile, nil
	}
	playerID = parsed.String()

	player, err := q.DB.GetPlayer(ctx, playerID)
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("getting player: %w", err)
	default:
		profile.Player = &ProfilePlayer{
			ID:        player.ID,
			Handle:    player.Handle,
			CreatedAt: player.CreatedAt,
			Avatar:    utility.NewAvatar(utility.DisplayName(player.ID, player.Handle)),
		}
	}

	runs, err := q.DB.ListRuns(ctx, db.RunFilter{PlayerID: playerID})
	if err != nil {
		return nil, fmt.Errorf("getting player runs: %w", err)
	}
	fillProfile(profile, runs)
	return profile, nil
}

// EmptyProfile is the profile of a player with no runs.
func EmptyProfile() *Profile {
	return &Profile{
		PerGame:      []PerGameStats{},
		RecentRuns:   []RecentRun{},
		Achievements: []achievements.Achievement{},
	}
}

func fillProfile(p *Profile, runs []db.Run) {
	p.TotalGames = len(runs)
	p.PerGame = PerGame(runs)
	p.RecentRuns = Recent(runs, RecentRunsLimit)

	ratings := make([]int, 0, len(p.PerGame))
	var skills rating.Skills
	for _, g := range p.PerGame {
		ratings = append(ratings, g.Rating)
		r := g.Rating
		switch games.ID(g.GameID) {
		case games.ReactionRush:
			skills.Reaction = &r
		case games.MemoryGrid:
			skills.Memory = &r
		case games.SprayControl:
			skills.Spray = &r
		case games.DropRoyale:
			skills.Drop = &r
		}
	}
	if m, ok := rating.Mean(ratings); ok {
		p.ArcadeRating = &m
	}
	if s, ok := rating.Strongest(skills); ok {
		p.Strongest = &s
	}
	if w, ok := rating.Weakest(skills); ok {
		p.Weakest = &w
	}
	p.Achievements = achievements.Evaluate(BestsFromRuns(runs))
}
