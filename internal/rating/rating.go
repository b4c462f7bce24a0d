// Package rating combines per-game skill scores into the arcade rating.
package rating

import (
	"math"

	"arcade/internal/games"
	"arcade/internal/scoring"
)

// Bests holds a player's personal best raw metric per game. Nil means never played.
type Bests struct {
	ReactionMs     *float64 `json:"reactionBestMs"`
	MemoryAccuracy *float64 `json:"memoryBestAccuracy"`
	SprayHits      *float64 `json:"sprayBestHits"`
	DropStreak     *float64 `json:"dropBestStreak"`
}

// Get returns the best for id.
func (b Bests) Get(id games.ID) *float64 {
	switch id {
	case games.ReactionRush:
		return b.ReactionMs
	case games.MemoryGrid:
		return b.MemoryAccuracy
	case games.SprayControl:
		return b.SprayHits
	case games.DropRoyale:
		return b.DropStreak
	}
	return nil
}

type GameSkill struct {
	GameID games.ID `json:"gameId"`
	Score  int      `json:"score"`
}

// Skills are the optional 0-100 scores per game.
type Skills struct {
	Reaction *int `json:"reactionScore"`
	Memory   *int `json:"memoryScore"`
	Spray    *int `json:"sprayScore"`
	Drop     *int `json:"dropScore"`
}

// Present lists the known scores in the fixed game order.
func (s Skills) Present() []GameSkill {
	var out []GameSkill
	for _, gs := range []struct {
		id    games.ID
		score *int
	}{
		{games.ReactionRush, s.Reaction},
		{games.MemoryGrid, s.Memory},
		{games.SprayControl, s.Spray},
		{games.DropRoyale, s.Drop},
	} {
		if gs.score != nil {
			out = append(out, GameSkill{GameID: gs.id, Score: *gs.score})
		}
	}
	return out
}

type Rating struct {
	Bests
	Skills
	Combined  *int       `json:"combinedScore"`
	Strongest *GameSkill `json:"strongest"`
	Weakest   *GameSkill `json:"weakest"`
}

// FromBests converts personal bests into skill scores.
func FromBests(b Bests) Skills {
	skill := func(id games.ID) *int {
		best := b.Get(id)
		if best == nil {
			return nil
		}
		v, _ := scoring.Skill(id, *best)
		return &v
	}
	return Skills{
		Reaction: skill(games.ReactionRush),
		Memory:   skill(games.MemoryGrid),
		Spray:    skill(games.SprayControl),
		Drop:     skill(games.DropRoyale),
	}
}

// Compute builds the full rating view for a set of bests.
func Compute(b Bests) Rating {
	s := FromBests(b)
	r := Rating{Bests: b, Skills: s}
	if c, ok := Combined(s); ok {
		r.Combined = &c
	}
	if g, ok := Strongest(s); ok {
		r.Strongest = &g
	}
	if g, ok := Weakest(s); ok {
		r.Weakest = &g
	}
	return r
}

// Combined is the rounded mean of the present scores. Unplayed games do not count.
func Combined(s Skills) (int, bool) {
	present := s.Present()
	if len(present) == 0 {
		return 0, false
	}
	sum := 0
	for _, g := range present {
		sum += g.Score
	}
	return int(math.Round(float64(sum) / float64(len(present)))), true
}

// Strongest is the highest present score; the earlier game wins ties.
func Strongest(s Skills) (GameSkill, bool) {
	return pick(s, func(a, b int) bool { return a > b })
}

// Weakest is the lowest present score; the earlier game wins ties.
func Weakest(s Skills) (GameSkill, bool) {
	return pick(s, func(a, b int) bool { return a < b })
}

func pick(s Skills, better func(a, b int) bool) (GameSkill, bool) {
	present := s.Present()
	if len(present) == 0 {
		return GameSkill{}, false
	}
	best := present[0]
	for _, g := range present[1:] {
		if better(g.Score, best.Score) {
			best = g
		}
	}
	return best, true
}

// ProfileRating maps a best normalized score onto 0-100.
func ProfileRating(best int) int {
	r := math.Round(float64(best) / scoring.MaxNormalized * 100)
	return int(math.Max(0, math.Min(100, r)))
}

// Mean is the rounded mean of ratings, false when there are none.
func Mean(ratings []int) (int, bool) {
	if len(ratings) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return int(math.Round(float64(sum) / float64(len(ratings)))), true
}
