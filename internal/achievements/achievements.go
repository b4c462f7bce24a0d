package achievements

import (
	"encoding/json"
	"log"

	"arcade/internal/localstats"
	"arcade/internal/rating"
)

// StorageKey holds the JSON array of unlocked achievement ids.
const StorageKey = "arcade-achievements"

type ID string

const (
	FirstBlood    ID = "first-blood"
	ReactionDemon ID = "reaction-demon"
	MemoryMachine ID = "memory-machine"
	SprayGod      ID = "spray-god"
	ZoneLord      ID = "zone-lord"
)

type Rarity string

const (
	Common Rarity = "common"
	Rare   Rarity = "rare"
	Epic   Rarity = "epic"
)

type Achievement struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Rarity      Rarity `json:"rarity"`
}

// All lists every achievement in display order.
var All = []Achievement{
	{ID: FirstBlood, Title: "First blood", Description: "Play any game once.", Icon: "🎮", Rarity: Common},
	{ID: ReactionDemon, Title: "Reaction demon", Description: "Hit under 220ms in Reaction Rush.", Icon: "⚡", Rarity: Rare},
	{ID: MemoryMachine, Title: "Memory machine", Description: "Hit 90%+ in Memory Grid.", Icon: "🧠", Rarity: Rare},
	{ID: SprayGod, Title: "Spray god", Description: "Hit 35+ targets in Spray Control.", Icon: "🎯", Rarity: Epic},
	{ID: ZoneLord, Title: "Zone lord", Description: "Reach a streak of 5+ in Drop Royale.", Icon: "📍", Rarity: Epic},
}

// Lookup returns the achievement with id.
func Lookup(id ID) (Achievement, bool) {
	for _, a := range All {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Evaluate returns every achievement the bests qualify for, in display order.
func Evaluate(b rating.Bests) []Achievement {
	earned := make([]Achievement, 0, len(All))
	for _, a := range All {
		if qualifies(a.ID, b) {
			earned = append(earned, a)
		}
	}
	return earned
}

func qualifies(id ID, b rating.Bests) bool {
	switch id {
	case FirstBlood:
		// a zero best does not count as played
		for _, v := range []*float64{b.ReactionMs, b.MemoryAccuracy, b.SprayHits, b.DropStreak} {
			if v != nil && *v != 0 {
				return true
			}
		}
		return false
	case ReactionDemon:
		return b.ReactionMs != nil && *b.ReactionMs < 220
	case MemoryMachine:
		return b.MemoryAccuracy != nil && *b.MemoryAccuracy >= 90
	case SprayGod:
		return b.SprayHits != nil && *b.SprayHits >= 35
	case ZoneLord:
		return b.DropStreak != nil && *b.DropStreak >= 5
	}
	return false
}

// Tracker persists which achievements a player has unlocked.
type Tracker struct {
	storage localstats.Storage
}

func NewTracker(storage localstats.Storage) *Tracker {
	return &Tracker{storage: storage}
}

// Unlocked returns the stored ids. Missing or malformed data reads as none.
func (t *Tracker) Unlocked() []ID {
	if t.storage == nil {
		return nil
	}
	raw, ok, err := t.storage.Get(StorageKey)
	if err != nil || !ok {
		return nil
	}
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	ids := make([]ID, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			ids = append(ids, ID(s))
		}
	}
	return ids
}

// OnRunRecorded re-checks achievements against stats once and stores any new unlocks.
// It returns only the newly unlocked achievements.
func (t *Tracker) OnRunRecorded(stats localstats.Stats) []Achievement {
	unlocked := t.Unlocked()
	have := make(map[ID]bool, len(unlocked))
	for _, id := range unlocked {
		have[id] = true
	}

	var fresh []Achievement
	for _, a := range Evaluate(stats.Bests) {
		if have[a.ID] {
			continue
		}
		have[a.ID] = true
		unlocked = append(unlocked, a.ID)
		fresh = append(fresh, a)
	}
	if len(fresh) == 0 || t.storage == nil {
		return fresh
	}

	data, err := json.Marshal(unlocked)
	if err != nil {
		return fresh
	}
	if err := t.storage.Set(StorageKey, string(data)); err != nil {
		log.Printf("[Achievements] save: %v\n", err)
	}
	return fresh
}
