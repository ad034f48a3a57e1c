package devserver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS votes (
			user_id TEXT NOT NULL,
			item_type TEXT NOT NULL,
			item_id TEXT NOT NULL,
			value INTEGER NOT NULL,
			updated_utc TEXT NOT NULL,
			PRIMARY KEY (user_id, item_type, item_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_votes_item ON votes(item_type, item_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Cast(ctx context.Context, user string, key Key, value int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin vote: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO votes (user_id, item_type, item_id, value, updated_utc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, item_type, item_id)
		DO UPDATE SET value = excluded.value, updated_utc = excluded.updated_utc`,
		user, key.ItemType, key.ItemID, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("upsert vote: %w", err)
	}

	score, err := scoreOf(ctx, tx, key)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit vote: %w", err)
	}
	return score, nil
}

func (s *SQLiteStore) Score(ctx context.Context, key Key) (int, error) {
	return scoreOf(ctx, s.db, key)
}

func (s *SQLiteStore) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN value > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN value < 0 THEN 1 ELSE 0 END), 0)
		FROM votes WHERE value <> 0`).Scan(&t.Votes, &t.Up, &t.Down)
	if err != nil {
		return Totals{}, fmt.Errorf("count votes: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scoreOf(ctx context.Context, q queryer, key Key) (int, error) {
	var score int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(value), 0) FROM votes WHERE item_type = ? AND item_id = ?`,
		key.ItemType, key.ItemID).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("score %s/%s: %w", key.ItemType, key.ItemID, err)
	}
	return score, nil
}
