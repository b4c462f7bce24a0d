// Package scoring maps each game's raw metric onto the shared 0-12000
// normalized score and the 0-100 skill score.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"arcade/internal/games"
)

const (
	MaxNormalized = 12000

	reactionFloorMs   = 150
	reactionCeilingMs = 500
	reactionPenalty   = 20

	sprayHitsCap   = 40
	sprayHitWeight = 200
	sprayAccWeight = 40

	dropStreakCap    = 10
	dropStreakWeight = 1200
)

var ErrUnknownGame = errors.New("unknown game")

// Metric is the raw measurement for one finished round.
// Shots is only read for spray-control.
type Metric struct {
	Value float64
	Shots float64
}

type Result struct {
	GameID     games.ID   `json:"gameId"`
	Normalized int        `json:"normalizedScore"`
	Skill      int        `json:"skill"`
	RawValue   float64    `json:"rawValue"`
	RawUnit    games.Unit `json:"rawUnit"`
}

// Normalize runs the formula for gameID against m.
func Normalize(gameID string, m Metric) (Result, error) {
	g, ok := games.Lookup(gameID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}
	res := Result{GameID: g.ID, RawUnit: g.Unit}
	switch g.ID {
	case games.ReactionRush:
		res.RawValue = sanitize(m.Value)
		res.Normalized = ReactionNormalized(m.Value)
		res.Skill = ReactionSkill(m.Value)
	case games.MemoryGrid:
		acc := MemorySkill(m.Value)
		res.RawValue = float64(acc)
		res.Normalized = MemoryNormalized(float64(acc))
		res.Skill = acc
	case games.SprayControl:
		res.RawValue = sanitize(m.Value)
		res.Normalized = SprayNormalized(m.Value, m.Shots)
		res.Skill = SpraySkill(m.Value)
	case games.DropRoyale:
		res.RawValue = sanitize(m.Value)
		res.Normalized = DropNormalized(m.Value)
		res.Skill = DropSkill(m.Value)
	}
	return res, nil
}

// Skill returns the 0-100 skill score for a stored personal best.
func Skill(gameID games.ID, best float64) (int, error) {
	switch gameID {
	case games.ReactionRush:
		return ReactionSkill(best), nil
	case games.MemoryGrid:
		return MemorySkill(best), nil
	case games.SprayControl:
		return SpraySkill(best), nil
	case games.DropRoyale:
		return DropSkill(best), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
}

// ReactionNormalized is max(0, 12000 - ms*20).
func ReactionNormalized(ms float64) int {
	ms = sanitize(ms)
	return int(math.Round(math.Max(0, MaxNormalized-ms*reactionPenalty)))
}

// ReactionSkill is 100 at or under 150ms and 0 at or over 500ms.
func ReactionSkill(ms float64) int {
	c := clamp(sanitize(ms), reactionFloorMs, reactionCeilingMs)
	return int(math.Round((reactionCeilingMs - c) / (reactionCeilingMs - reactionFloorMs) * 100))
}

// MemoryNormalized scales a 0-100 accuracy to 0-10000.
func MemoryNormalized(accuracy float64) int {
	return int(math.Round(clamp(sanitize(accuracy), 0, 100) * 100))
}

func MemorySkill(accuracy float64) int {
	return int(math.Round(clamp(sanitize(accuracy), 0, 100)))
}

// SprayAccuracy is hits/shots as a whole percent in [0,100]. No shots gives 0.
func SprayAccuracy(hits, shots float64) int {
	hits, shots = sanitize(hits), sanitize(shots)
	if shots == 0 {
		return 0
	}
	return int(math.Round(clamp(hits/shots*100, 0, 100)))
}

func SprayNormalized(hits, shots float64) int {
	acc := SprayAccuracy(hits, shots)
	return int(math.Round(sanitize(hits)*sprayHitWeight + float64(acc)*sprayAccWeight))
}

func SpraySkill(hits float64) int {
	return int(math.Round(math.Min(sanitize(hits), sprayHitsCap) / sprayHitsCap * 100))
}

func DropNormalized(streak float64) int {
	return int(math.Round(sanitize(streak) * dropStreakWeight))
}

func DropSkill(streak float64) int {
	return int(math.Round(math.Min(sanitize(streak), dropStreakCap) / dropStreakCap * 100))
}

// sanitize floors negatives and non-finite values at 0.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
