package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BestRun is one leaderboard row: a player's best run with its dense rank.
type BestRun struct {
	PlayerID   string  `db:"player_id"`
	Handle     *string `db:"handle"`
	BestScore  int     `db:"best_score"`
	GameID     string  `db:"game_id"`
	AchievedAt DBTime  `db:"achieved_at"`
	Rank       int     `db:"player_rank"`
}

// RunStats summarizes the runs of one game.
type RunStats struct {
	TotalRuns     int             `db:"total_runs"`
	BestScore     sql.NullInt64   `db:"best_score"`
	AvgScore      sql.NullFloat64 `db:"avg_score"`
	PlayersOnline int             `db:"players_online"`
}

// BestRuns picks each player's highest-scoring run (earliest on equal scores), dense-ranks
// players by that score and returns the top limit. An empty difficulty means all runs.
func (d *DB) BestRuns(ctx context.Context, difficulty string, limit int) ([]BestRun, error) {
	var args []any
	where := ""
	if difficulty != "" {
		where = "WHERE r.difficulty = ?"
		args = append(args, difficulty)
	}
	args = append(args, limit)

	query := `
		WITH ranked AS (
			SELECT r.player_id, r.game_id, r.normalized_score, r.created_at,
			       ROW_NUMBER() OVER (
			           PARTITION BY r.player_id
			           ORDER BY r.normalized_score DESC, r.created_at ASC, r.id ASC
			       ) AS rn
			FROM runs r
			` + where + `
		)
		SELECT b.player_id, p.handle, b.normalized_score AS best_score, b.game_id,
		       b.created_at AS achieved_at,
		       DENSE_RANK() OVER (ORDER BY b.normalized_score DESC) AS player_rank
		FROM ranked b
		LEFT JOIN players p ON p.id = b.player_id
		WHERE b.rn = 1
		ORDER BY b.normalized_score DESC, b.created_at ASC, b.player_id ASC
		LIMIT ?`

	var rows []BestRun
	if err := d.conn.SelectContext(ctx, &rows, d.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("getting best runs: %w", err)
	}
	return rows, nil
}

// GameRunStats aggregates one game's runs. Players online counts distinct players with a
// run after since.
func (d *DB) GameRunStats(ctx context.Context, gameID, difficulty string, since time.Time) (RunStats, error) {
	args := []any{since.UTC(), gameID}
	query := `
		SELECT COUNT(*) AS total_runs,
		       MAX(normalized_score) AS best_score,
		       AVG(normalized_score) AS avg_score,
		       COUNT(DISTINCT CASE WHEN created_at > ? THEN player_id END) AS players_online
		FROM runs
		WHERE game_id = ?`
	if difficulty != "" {
		query += " AND difficulty = ?"
		args = append(args, difficulty)
	}

	var stats RunStats
	if err := d.conn.GetContext(ctx, &stats, d.conn.Rebind(query), args...); err != nil {
		return RunStats{}, fmt.Errorf("getting game run stats: %w", err)
	}
	return stats, nil
}

// DBTime scans timestamps that come back either typed or as text. SQLite loses the
// column type once a value passes through a window query.
type DBTime struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *DBTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("scanning time: unsupported type %T", src)
}

func (t *DBTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("scanning time: unrecognized format %q", s)
}
