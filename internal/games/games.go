package games

import "strings"

type ID string

const (
	ReactionRush ID = "reaction-rush"
	MemoryGrid   ID = "memory-grid"
	SprayControl ID = "spray-control"
	DropRoyale   ID = "drop-royale"
)

type Category string

const (
	CategoryValorant Category = "valorant"
	CategoryLeague   Category = "league"
	CategoryCSGO     Category = "csgo"
	CategoryFortnite Category = "fortnite"
)

// Unit is the raw metric unit a game reports.
type Unit string

const (
	UnitMs     Unit = "ms"
	UnitPct    Unit = "%"
	UnitHits   Unit = "hits"
	UnitStreak Unit = "streak"
)

type Game struct {
	ID          ID         `json:"id"`
	Name        string     `json:"name"`
	Tagline     string     `json:"tagline"`
	Category    Category   `json:"category"`
	Unit        Unit       `json:"unit"`
	Difficulty  Difficulty `json:"difficulty"`
	LowerBetter bool       `json:"lowerIsBetter"`
}

// catalog is kept in the fixed order used for tie-breaks and display.
var catalog = []Game{
	{ID: ReactionRush, Name: "Reaction Rush", Tagline: "High-speed aim & reflex trainer.", Category: CategoryValorant, Unit: UnitMs, Difficulty: Medium, LowerBetter: true},
	{ID: MemoryGrid, Name: "Memory Grid", Tagline: "Memorise tile patterns under pressure.", Category: CategoryLeague, Unit: UnitPct, Difficulty: Easy},
	{ID: SprayControl, Name: "Spray Control", Tagline: "Hold mouse1, manage recoil, stay on head.", Category: CategoryCSGO, Unit: UnitHits, Difficulty: Hard},
	{ID: DropRoyale, Name: "Drop Royale", Tagline: "Fortnite-style drop timing and tracking.", Category: CategoryFortnite, Unit: UnitStreak, Difficulty: Medium},
}

// Warmup is the practice playlist order.
var Warmup = []ID{ReactionRush, SprayControl, MemoryGrid}

// All returns the catalog in its fixed order.
func All() []Game {
	out := make([]Game, len(catalog))
	copy(out, catalog)
	return out
}

// IDs returns every game id in the fixed order.
func IDs() []ID {
	ids := make([]ID, 0, len(catalog))
	for _, g := range catalog {
		ids = append(ids, g.ID)
	}
	return ids
}

func Lookup(id string) (Game, bool) {
	for _, g := range catalog {
		if string(g.ID) == id {
			return g, true
		}
	}
	return Game{}, false
}

func Valid(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// Index returns the position of id in the fixed order, or -1.
func Index(id ID) int {
	for i, g := range catalog {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// NextInPlaylist returns the game after current in the warmup playlist.
func NextInPlaylist(current ID) (ID, bool) {
	for i, id := range Warmup {
		if id == current && i+1 < len(Warmup) {
			return Warmup[i+1], true
		}
	}
	return "", false
}

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

var difficulties = []Difficulty{Easy, Medium, Hard}

func Difficulties() []Difficulty {
	return append([]Difficulty(nil), difficulties...)
}

// ParseDifficulty matches s case-insensitively against the known levels.
func ParseDifficulty(s string) (Difficulty, bool) {
	s = strings.TrimSpace(s)
	for _, d := range difficulties {
		if strings.EqualFold(s, string(d)) {
			return d, true
		}
	}
	return "", false
}

// DifficultyOrDefault returns Medium for empty or unknown input.
func DifficultyOrDefault(s string) Difficulty {
	if d, ok := ParseDifficulty(s); ok {
		return d
	}
	return Medium
}

// ParseDifficultyFilter returns "" (no filter) for omitted, "All" or unknown values.
func ParseDifficultyFilter(s string) Difficulty {
	d, _ := ParseDifficulty(s)
	return d
}
