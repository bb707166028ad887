package batch

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry is the outcome of one subject in one run.
type Entry struct {
	RunID      string
	UserID     string
	Date       string
	Team       string
	Status     Status
	ChatID     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists run outcomes.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// HistoryStore keeps run outcomes in SQLite.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistory opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenHistory(path string) (*HistoryStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("batch: create history dir: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("batch: open history: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	h := &HistoryStore{db: db}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("batch: init history schema: %w", err)
	}
	return h, nil
}

func (h *HistoryStore) Close() error { return h.db.Close() }

func (h *HistoryStore) initSchema() error {
	_, err := h.db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		team TEXT NOT NULL,
		status TEXT NOT NULL,
		chat_id TEXT,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		PRIMARY KEY (run_id, user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user_id, finished_at);
	`)
	return err
}

func (h *HistoryStore) Record(ctx context.Context, e Entry) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, user_id, date, team, status, chat_id, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.UserID, e.Date, e.Team, string(e.Status), e.ChatID, e.Error,
		e.StartedAt.UTC(), e.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("batch: record %s/%s: %w", e.RunID, e.UserID, err)
	}
	return nil
}

// Recent returns the latest entries of a subject, newest first.
func (h *HistoryStore) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT run_id, user_id, date, team, status, COALESCE(chat_id, ''), COALESCE(error, ''), started_at, finished_at
		FROM runs WHERE user_id = ? ORDER BY finished_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			status string
		)
		if err := rows.Scan(&e.RunID, &e.UserID, &e.Date, &e.Team, &status, &e.ChatID, &e.Error, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, err
		}
		e.Status = Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
