package analytics

import (
	"time"

	"arcade/internal/achievements"
	"arcade/internal/rating"
	"arcade/internal/utility"
)

type LeaderboardEntry struct {
	PlayerID   string    `json:"player_id"`
	Handle     string    `json:"handle"`
	BestScore  int       `json:"best_score"`
	GameID     string    `json:"game_id"`
	Rank       int       `json:"rank"`
	AchievedAt time.Time `json:"achieved_at"`
}

type GameStats struct {
	GameID        string  `json:"gameId"`
	Difficulty    *string `json:"difficulty"`
	BestScore     *int    `json:"bestScore"`
	AvgScore      *int    `json:"avgScore"`
	PlayersOnline int     `json:"playersOnline"`
	TotalRuns     int     `json:"totalRuns"`
}

type ProfilePlayer struct {
	ID        string         `json:"id"`
	Handle    *string        `json:"handle"`
	CreatedAt time.Time      `json:"created_at"`
	Avatar    utility.Avatar `json:"avatar"`
}

type PerGameStats struct {
	GameID     string    `json:"gameId"`
	BestScore  int       `json:"bestScore"`
	Runs       int       `json:"runs"`
	LastPlayed time.Time `json:"lastPlayed"`
	Rating     int       `json:"rating"`
}

type RecentRun struct {
	GameID          string    `json:"game_id"`
	NormalizedScore int       `json:"normalized_score"`
	CreatedAt       time.Time `json:"created_at"`
}

type Profile struct {
	Player       *ProfilePlayer             `json:"player"`
	TotalGames   int                        `json:"totalGames"`
	ArcadeRating *int                       `json:"arcadeRating"`
	PerGame      []PerGameStats             `json:"perGame"`
	RecentRuns   []RecentRun                `json:"recentRuns"`
	Strongest    *rating.GameSkill          `json:"strongest"`
	Weakest      *rating.GameSkill          `json:"weakest"`
	Achievements []achievements.Achievement `json:"achievements"`
}
