package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrDisabled is returned by the HTTP layer when no score store is configured
var ErrDisabled = errors.New("store: disabled")

// Store wraps the SQLite connection holding finished-session scores
type Store struct {
	conn *sql.DB
}

// ScoreRow is one persisted score
type ScoreRow struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	RoomCode  string    `json:"roomCode"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// Open opens (or creates) the database at path
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: enable wal: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: busy timeout: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		room_code TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score DESC);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// InsertScores writes rows in a single transaction
func (s *Store) InsertScores(ctx context.Context, rows []ScoreRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO scores (name, room_code, score, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		at := r.CreatedAt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, r.Name, r.RoomCode, r.Score, at.UTC()); err != nil {
			return fmt.Errorf("store: insert score: %w", err)
		}
	}
	return tx.Commit()
}

// TopScores returns the best scores, highest first
func (s *Store) TopScores(ctx context.Context, limit int) ([]ScoreRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, room_code, score, created_at FROM scores ORDER BY score DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top scores: %w", err)
	}
	defer rows.Close()

	out := make([]ScoreRow, 0, limit)
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.ID, &r.Name, &r.RoomCode, &r.Score, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan score: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BestScore returns the highest score recorded under name, or 0
func (s *Store) BestScore(ctx context.Context, name string) (int, error) {
	var best sql.NullInt64
	err := s.conn.QueryRowContext(ctx, `SELECT MAX(score) FROM scores WHERE name = ?`, name).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: best score: %w", err)
	}
	return int(best.Int64), nil
}
