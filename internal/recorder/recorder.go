// Package recorder validates a finished round and persists it as one run.
package recorder

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"arcade/internal/db"
	"arcade/internal/events"
	"arcade/internal/games"
	"arcade/internal/scoring"
)

// Policy decides which normalized score is stored.
type Policy string

const (
	// PolicyTrust stores the client-computed score.
	PolicyTrust Policy = "trust"
	// PolicyDerive recomputes the score from the raw metric.
	PolicyDerive Policy = "derive"
)

type Store interface {
	UpsertPlayer(ctx context.Context, id string, handle *string, now time.Time) error
	InsertRun(ctx context.Context, r *db.Run) error
}

type Publisher interface {
	PublishRun(ev events.RunRecorded) bool
}

// Request is the body of a run submission.
type Request struct {
	PlayerID        string   `json:"playerId"`
	PlayerName      *string  `json:"playerName,omitempty"`
	GameID          string   `json:"gameId"`
	NormalizedScore *float64 `json:"normalizedScore"`
	RawValue        *float64 `json:"rawValue"`
	RawUnit         string   `json:"rawUnit"`
	Difficulty      string   `json:"difficulty,omitempty"`
	Shots           *float64 `json:"shots,omitempty"`
}

type Recorder struct {
	store  Store
	bus    Publisher
	policy Policy
	now    func() time.Time
}

// New builds a Recorder. bus may be nil. Unknown policies fall back to trust.
func New(store Store, bus Publisher, policy Policy) *Recorder {
	if policy != PolicyDerive {
		policy = PolicyTrust
	}
	return &Recorder{store: store, bus: bus, policy: policy, now: time.Now}
}

func (r *Recorder) Policy() Policy {
	return r.policy
}

// Record validates req, upserts the player and inserts the run. The two writes are
// independent; a failed insert leaves the player row in place.
func (r *Recorder) Record(ctx context.Context, req Request) (*db.Run, error) {
	run, handle, err := r.prepare(req)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	if err := r.store.UpsertPlayer(ctx, run.PlayerID, handle, now); err != nil {
		return nil, &StorageError{Op: "upsert player", Err: err}
	}
	run.CreatedAt = now
	if err := r.store.InsertRun(ctx, run); err != nil {
		return nil, &StorageError{Op: "insert run", Err: err}
	}

	if r.bus != nil {
		ev := events.RunRecorded{
			RunID:           run.ID,
			PlayerID:        run.PlayerID,
			GameID:          run.GameID,
			NormalizedScore: run.NormalizedScore,
			RawValue:        run.RawValue,
			RawUnit:         run.RawUnit,
			Difficulty:      run.Difficulty,
			CreatedAt:       run.CreatedAt,
		}
		if handle != nil {
			ev.Handle = *handle
		}
		r.bus.PublishRun(ev)
	}
	return run, nil
}

func (r *Recorder) prepare(req Request) (*db.Run, *string, error) {
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		return nil, nil, invalid("playerId", "missing playerId")
	}
	parsed, err := uuid.Parse(playerID)
	if err != nil {
		return nil, nil, invalid("playerId", "playerId must be a uuid")
	}

	gameID := strings.TrimSpace(req.GameID)
	if gameID == "" {
		return nil, nil, invalid("gameId", "missing gameId")
	}
	game, ok := games.Lookup(gameID)
	if !ok {
		return nil, nil, invalid("gameId", "unknown gameId")
	}

	if req.NormalizedScore == nil || !finite(*req.NormalizedScore) {
		return nil, nil, invalid("normalizedScore", "normalizedScore must be a number")
	}
	// a missing raw metric is stored as 0 unless the score is derived from it
	var raw float64
	switch {
	case req.RawValue != nil && !finite(*req.RawValue):
		return nil, nil, invalid("rawValue", "rawValue must be a number")
	case req.RawValue != nil:
		raw = *req.RawValue
	case r.policy == PolicyDerive:
		return nil, nil, invalid("rawValue", "rawValue is required to derive the score")
	}

	run := &db.Run{
		PlayerID:        parsed.String(),
		GameID:          string(game.ID),
		NormalizedScore: int(math.Round(*req.NormalizedScore)),
		RawValue:        raw,
		RawUnit:         strings.TrimSpace(req.RawUnit),
		Difficulty:      string(games.DifficultyOrDefault(req.Difficulty)),
	}
	if run.RawUnit == "" {
		run.RawUnit = string(game.Unit)
	}

	if r.policy == PolicyDerive {
		if run.RawUnit != string(game.Unit) {
			return nil, nil, invalid("rawUnit", "rawUnit must be "+string(game.Unit)+" for "+gameID)
		}
		m := scoring.Metric{Value: run.RawValue}
		if game.ID == games.SprayControl {
			if req.Shots == nil || !finite(*req.Shots) {
				return nil, nil, invalid("shots", "shots is required for "+gameID)
			}
			m.Shots = *req.Shots
		}
		res, err := scoring.Normalize(gameID, m)
		if err != nil {
			return nil, nil, invalid("gameId", err.Error())
		}
		run.NormalizedScore = res.Normalized
		run.RawValue = res.RawValue
	}

	var handle *string
	if req.PlayerName != nil {
		if h := strings.TrimSpace(*req.PlayerName); h != "" {
			handle = &h
		}
	}
	return run, handle, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
