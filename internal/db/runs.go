package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Run struct {
	ID              int64     `db:"id" json:"id"`
	PlayerID        string    `db:"player_id" json:"player_id"`
	Handle          *string   `db:"handle" json:"handle,omitempty"`
	GameID          string    `db:"game_id" json:"game_id"`
	NormalizedScore int       `db:"normalized_score" json:"normalized_score"`
	RawValue        float64   `db:"raw_value" json:"raw_value"`
	RawUnit         string    `db:"raw_unit" json:"raw_unit"`
	Difficulty      string    `db:"difficulty" json:"difficulty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// RunFilter narrows ListRuns. Zero fields do not filter.
type RunFilter struct {
	PlayerID    string
	GameID      string
	Difficulty  string
	Limit       int
	NewestFirst bool
}

// InsertRun appends one run and sets r.ID.
func (d *DB) InsertRun(ctx context.Context, r *Run) error {
	r.CreatedAt = r.CreatedAt.UTC()
	err := d.conn.QueryRowxContext(ctx, d.conn.Rebind(`
		INSERT INTO runs (player_id, game_id, normalized_score, raw_value, raw_unit, difficulty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), r.PlayerID, r.GameID, r.NormalizedScore, r.RawValue, r.RawUnit, r.Difficulty, r.CreatedAt).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// ListRuns returns runs joined with the player's handle, oldest first unless f.NewestFirst.
func (d *DB) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	var (
		where []string
		args  []any
	)
	if f.PlayerID != "" {
		where = append(where, "r.player_id = ?")
		args = append(args, f.PlayerID)
	}
	if f.GameID != "" {
		where = append(where, "r.game_id = ?")
		args = append(args, f.GameID)
	}
	if f.Difficulty != "" {
		where = append(where, "r.difficulty = ?")
		args = append(args, f.Difficulty)
	}

	query := `
		SELECT r.id, r.player_id, p.handle, r.game_id, r.normalized_score,
		       r.raw_value, r.raw_unit, r.difficulty, r.created_at
		FROM runs r
		LEFT JOIN players p ON p.id = r.player_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.NewestFirst {
		query += " ORDER BY r.created_at DESC, r.id DESC"
	} else {
		query += " ORDER BY r.created_at ASC, r.id ASC"
	}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var runs []Run
	if err := d.conn.SelectContext(ctx, &runs, d.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	for i := range runs {
		runs[i].CreatedAt = runs[i].CreatedAt.UTC()
	}
	return runs, nil
}
