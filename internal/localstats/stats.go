// Package localstats caches personal bests and play counts on the player's machine.
// Every read degrades to "unknown" and every write to a no-op when storage fails.
package localstats

import (
	"encoding/json"
	"log"
	"math"
	"strconv"
	"time"

	"arcade/internal/games"
	"arcade/internal/rating"
)

const (
	KeyReactionBestMs     = "stats-reaction-best-ms"
	KeyMemoryBestAccuracy = "stats-memory-best-accuracy"
	KeySprayBestHits      = "stats-spray-best-hits"
	KeyDropBestStreak     = "stats-drop-best-streak"
	KeyMeta               = "stats-meta-v1"
)

var bestKeys = map[games.ID]string{
	games.ReactionRush: KeyReactionBestMs,
	games.MemoryGrid:   KeyMemoryBestAccuracy,
	games.SprayControl: KeySprayBestHits,
	games.DropRoyale:   KeyDropBestStreak,
}

type Meta struct {
	TotalReactionRuns int        `json:"totalReactionRuns"`
	TotalMemoryRounds int        `json:"totalMemoryRounds"`
	TotalSprayDrills  int        `json:"totalSprayDrills"`
	TotalDropRounds   int        `json:"totalDropRounds"`
	LastPlayedGameID  *string    `json:"lastPlayedGameId"`
	LastPlayedAt      *time.Time `json:"lastPlayedAt"`
}

// Plays returns the play count for id.
func (m Meta) Plays(id games.ID) int {
	switch id {
	case games.ReactionRush:
		return m.TotalReactionRuns
	case games.MemoryGrid:
		return m.TotalMemoryRounds
	case games.SprayControl:
		return m.TotalSprayDrills
	case games.DropRoyale:
		return m.TotalDropRounds
	}
	return 0
}

type Stats struct {
	rating.Bests
	Meta
}

type Store struct {
	storage Storage
	now     func() time.Time
}

// New wraps storage. A nil storage behaves as permanently unavailable.
func New(storage Storage) *Store {
	return &Store{storage: storage, now: time.Now}
}

func (s *Store) get(key string) (string, bool) {
	if s.storage == nil {
		return "", false
	}
	v, ok, err := s.storage.Get(key)
	if err != nil {
		log.Printf("[LocalStats] read %s: %v\n", key, err)
		return "", false
	}
	return v, ok
}

func (s *Store) set(key, value string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Set(key, value); err != nil {
		log.Printf("[LocalStats] write %s: %v\n", key, err)
	}
}

func (s *Store) remove(key string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Remove(key); err != nil {
		log.Printf("[LocalStats] remove %s: %v\n", key, err)
	}
}

// Best returns the stored personal best for id, or nil when unknown.
func (s *Store) Best(id games.ID) *float64 {
	key, ok := bestKeys[id]
	if !ok {
		return nil
	}
	raw, ok := s.get(key)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// SetBest stores v for id. A nil v clears it.
func (s *Store) SetBest(id games.ID, v *float64) {
	key, ok := bestKeys[id]
	if !ok {
		return
	}
	if v == nil {
		s.remove(key)
		return
	}
	s.set(key, strconv.FormatFloat(*v, 'f', -1, 64))
}

// SubmitBest keeps v if it beats the stored best. Reaction time is lower-is-better.
func (s *Store) SubmitBest(id games.ID, v float64) bool {
	g, ok := games.Lookup(string(id))
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	cur := s.Best(id)
	better := cur == nil ||
		(g.LowerBetter && v < *cur) ||
		(!g.LowerBetter && v > *cur)
	if better {
		s.SetBest(id, &v)
	}
	return better
}

func (s *Store) Meta() Meta {
	raw, ok := s.get(KeyMeta)
	if !ok {
		return Meta{}
	}
	var m Meta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Meta{}
	}
	return m
}

// RecordGamePlayed bumps the play count for id and remembers it as last played.
func (s *Store) RecordGamePlayed(id games.ID) {
	m := s.Meta()
	switch id {
	case games.ReactionRush:
		m.TotalReactionRuns++
	case games.MemoryGrid:
		m.TotalMemoryRounds++
	case games.SprayControl:
		m.TotalSprayDrills++
	case games.DropRoyale:
		m.TotalDropRounds++
	}
	gameID := string(id)
	now := s.now().UTC()
	m.LastPlayedGameID = &gameID
	m.LastPlayedAt = &now

	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	s.set(KeyMeta, string(data))
}

func (s *Store) Bests() rating.Bests {
	return rating.Bests{
		ReactionMs:     s.Best(games.ReactionRush),
		MemoryAccuracy: s.Best(games.MemoryGrid),
		SprayHits:      s.Best(games.SprayControl),
		DropStreak:     s.Best(games.DropRoyale),
	}
}

func (s *Store) Load() Stats {
	return Stats{Bests: s.Bests(), Meta: s.Meta()}
}

// RecordRun applies one finished round: it submits the best and bumps the play count.
// It reports whether the round set a new personal best.
func (s *Store) RecordRun(id games.ID, value float64) bool {
	improved := s.SubmitBest(id, value)
	s.RecordGamePlayed(id)
	return improved
}
