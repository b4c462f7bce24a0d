package analytics

import (
	"math"
	"sort"
	"time"

	"arcade/internal/db"
	"arcade/internal/games"
	"arcade/internal/rating"
	"arcade/internal/utility"
)

const RecentRunsLimit = 5

// Leaderboard is the in-memory form of the store's BestRuns query. It keeps each
// player's best run, orders by best descending and assigns dense ranks. The game id is the game of the best run; on equal scores the earliest
// run wins. Players tied on score are listed by who got there first.
func Leaderboard(runs []db.Run, limit int) []LeaderboardEntry {
	best := make(map[string]db.Run)
	for _, r := range runs {
		cur, ok := best[r.PlayerID]
		if !ok || r.NormalizedScore > cur.NormalizedScore ||
			(r.NormalizedScore == cur.NormalizedScore && r.CreatedAt.Before(cur.CreatedAt)) {
			best[r.PlayerID] = r
		}
	}

	entries := make([]LeaderboardEntry, 0, len(best))
	for id, r := range best {
		entries = append(entries, LeaderboardEntry{
			PlayerID:   id,
			Handle:     utility.DisplayName(id, r.Handle),
			BestScore:  r.NormalizedScore,
			GameID:     r.GameID,
			AchievedAt: r.CreatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.BestScore != b.BestScore {
			return a.BestScore > b.BestScore
		}
		if !a.AchievedAt.Equal(b.AchievedAt) {
			return a.AchievedAt.Before(b.AchievedAt)
		}
		return a.PlayerID < b.PlayerID
	})

	rank := 0
	for i := range entries {
		if i == 0 || entries[i].BestScore != entries[i-1].BestScore {
			rank++
		}
		entries[i].Rank = rank
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// ComputeGameStats aggregates runs of one game in memory, matching the store's
// GameRunStats. Players online counts distinct players with a run newer than now-window.
func ComputeGameStats(gameID string, difficulty games.Difficulty, runs []db.Run, now time.Time, window time.Duration) GameStats {
	stats := GameStats{GameID: gameID, TotalRuns: len(runs)}
	if difficulty != "" {
		d := string(difficulty)
		stats.Difficulty = &d
	}
	if len(runs) == 0 {
		return stats
	}

	best := runs[0].NormalizedScore
	sum := 0.0
	cutoff := now.Add(-window)
	online := make(map[string]bool)
	for _, r := range runs {
		if r.NormalizedScore > best {
			best = r.NormalizedScore
		}
		sum += float64(r.NormalizedScore)
		if r.CreatedAt.After(cutoff) {
			online[r.PlayerID] = true
		}
	}
	avg := int(math.Round(sum / float64(len(runs))))
	stats.BestScore = &best
	stats.AvgScore = &avg
	stats.PlayersOnline = len(online)
	return stats
}

// PerGame summarizes a player's runs per game in catalog order. Unknown game ids
// follow in name order.
func PerGame(runs []db.Run) []PerGameStats {
	byGame := make(map[string]*PerGameStats)
	for _, r := range runs {
		g, ok := byGame[r.GameID]
		if !ok {
			g = &PerGameStats{GameID: r.GameID, BestScore: r.NormalizedScore, LastPlayed: r.CreatedAt}
			byGame[r.GameID] = g
		}
		g.Runs++
		if r.NormalizedScore > g.BestScore {
			g.BestScore = r.NormalizedScore
		}
		if r.CreatedAt.After(g.LastPlayed) {
			g.LastPlayed = r.CreatedAt
		}
	}

	out := make([]PerGameStats, 0, len(byGame))
	for _, id := range games.IDs() {
		if g, ok := byGame[string(id)]; ok {
			g.Rating = rating.ProfileRating(g.BestScore)
			out = append(out, *g)
			delete(byGame, string(id))
		}
	}
	var rest []string
	for id := range byGame {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	for _, id := range rest {
		g := byGame[id]
		g.Rating = rating.ProfileRating(g.BestScore)
		out = append(out, *g)
	}
	return out
}

// Recent returns up to limit runs, newest first.
func Recent(runs []db.Run, limit int) []RecentRun {
	sorted := make([]db.Run, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]RecentRun, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, RecentRun{GameID: r.GameID, NormalizedScore: r.NormalizedScore, CreatedAt: r.CreatedAt})
	}
	return out
}

// BestsFromRuns picks the personal best raw metric per game: the lowest reaction
// time and the highest value elsewhere. Runs whose unit does not match the game are skipped.
func BestsFromRuns(runs []db.Run) rating.Bests {
	var b rating.Bests
	for _, r := range runs {
		g, ok := games.Lookup(r.GameID)
		if !ok || r.RawUnit != string(g.Unit) {
			continue
		}
		v := r.RawValue
		switch g.ID {
		case games.ReactionRush:
			if b.ReactionMs == nil || v < *b.ReactionMs {
				b.ReactionMs = &v
			}
		case games.MemoryGrid:
			if b.MemoryAccuracy == nil || v > *b.MemoryAccuracy {
				b.MemoryAccuracy = &v
			}
		case games.SprayControl:
			if b.SprayHits == nil || v > *b.SprayHits {
				b.SprayHits = &v
			}
		case games.DropRoyale:
			if b.DropStreak == nil || v > *b.DropStreak {
				b.DropStreak = &v
			}
		}
	}
	return b
}
