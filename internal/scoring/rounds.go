package scoring

import "math"

// MemoryRound is the outcome of comparing a player's tile selection with the shown pattern.
type MemoryRound struct {
	Correct  int `json:"correct"`
	Extra    int `json:"extra"`
	Missed   int `json:"missed"`
	Accuracy int `json:"accuracy"`
}

// MemoryAccuracy is max(0, round(100*(correct - extra - missed/2)/patternLength)),
// capped at 100. An empty pattern scores 0.
func MemoryAccuracy(correct, extra, missed, patternLength int) int {
	if patternLength <= 0 {
		return 0
	}
	raw := float64(correct) - float64(extra) - 0.5*float64(missed)
	pct := math.Round(raw / float64(patternLength) * 100)
	return int(clamp(pct, 0, 100))
}

// EvaluateMemoryRound scores selected tile indexes against pattern on a grid of gridSize tiles.
// Indexes outside the grid are ignored.
func EvaluateMemoryRound(pattern, selected []int, gridSize int) MemoryRound {
	target := make(map[int]bool, len(pattern))
	for _, i := range pattern {
		if i >= 0 && i < gridSize {
			target[i] = true
		}
	}
	picked := make(map[int]bool, len(selected))
	for _, i := range selected {
		if i >= 0 && i < gridSize {
			picked[i] = true
		}
	}

	var r MemoryRound
	for i := 0; i < gridSize; i++ {
		switch {
		case target[i] && picked[i]:
			r.Correct++
		case !target[i] && picked[i]:
			r.Extra++
		case target[i] && !picked[i]:
			r.Missed++
		}
	}
	r.Accuracy = MemoryAccuracy(r.Correct, r.Extra, r.Missed, len(target))
	return r
}

// Zone is one landing option in a drop round.
type Zone struct {
	ID     string  `json:"id"`
	Heat   float64 `json:"heat"`
	Loot   float64 `json:"loot"`
	Safety float64 `json:"safety"`
}

// ZoneScore weights loot, safety and closeness of heat to 60.
func ZoneScore(z Zone) float64 {
	return z.Loot*0.5 + z.Safety*0.3 + (100-math.Abs(z.Heat-60))*0.2
}

// BestZone returns the index of the highest scoring zone. The first one wins ties.
// It returns -1 for no zones.
func BestZone(zones []Zone) int {
	best := -1
	for i, z := range zones {
		if best < 0 || ZoneScore(z) > ZoneScore(zones[best]) {
			best = i
		}
	}
	return best
}

// NextStreak extends streak when the picked zone is the best one and resets it otherwise.
func NextStreak(streak int, zones []Zone, picked int) int {
	if picked >= 0 && picked == BestZone(zones) {
		return streak + 1
	}
	return 0
}
