package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Player struct {
	ID        string    `db:"id" json:"id"`
	Handle    *string   `db:"handle" json:"handle"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UpsertPlayer creates the player row if missing. A handle only fills an empty one,
// so the first name a player submits sticks.
func (d *DB) UpsertPlayer(ctx context.Context, id string, handle *string, now time.Time) error {
	_, err := d.conn.ExecContext(ctx, d.conn.Rebind(`
		INSERT INTO players (id, handle, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET handle = COALESCE(players.handle, excluded.handle)
	`), id, handle, now.UTC())
	if err != nil {
		return fmt.Errorf("upserting player: %w", err)
	}
	return nil
}

func (d *DB) GetPlayer(ctx context.Context, id string) (*Player, error) {
	var p Player
	err := d.conn.GetContext(ctx, &p, d.conn.Rebind(`
		SELECT id, handle, created_at FROM players WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
