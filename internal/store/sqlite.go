// internal/store/sqlite.go
//
// SQLite history store.
// Responsibilities:
//   - Opening SQLite with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded migrations (idempotent, recorded in _migrations).
//   - Session rows and score-attempt rows for GET /session/history.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorymatch/assets"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// SessionRow mirrors the sessions table.
type SessionRow struct {
	ID         string
	Address    string
	StartedAt  time.Time
	Status     string
	Stage      int
	TotalMoves int
	FinishedAt *time.Time
}

// Attempt mirrors the score_attempts table.
type Attempt struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Stage     int    `json:"stage"`
	Moves     int    `json:"moves"`
	Status    string `json:"status"`
	TxHash    string `json:"txHash,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// SQLite is the history store.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if missing) the database at path and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// openDB ensures the parent directory exists and sets busy timeout + WAL.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies each embedded sql/*.sql file once, in lexical order,
// inside its own transaction.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	files, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := fs.ReadFile(assets.FS, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// InsertSession records a new session.
func (s *SQLite) InsertSession(ctx context.Context, r SessionRow) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO sessions (id, address, started_at, status, stage, total_moves)
        VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, strings.ToLower(r.Address), formatTime(r.StartedAt), r.Status, r.Stage, r.TotalMoves,
	)
	return err
}

// UpdateSession writes progress; FinishedAt is only set once.
func (s *SQLite) UpdateSession(ctx context.Context, r SessionRow) error {
	var finished any
	if r.FinishedAt != nil {
		finished = formatTime(*r.FinishedAt)
	}
	_, err := s.db.ExecContext(ctx, `
        UPDATE sessions
        SET status=?, stage=?, total_moves=?, finished_at=COALESCE(finished_at, ?)
        WHERE id=?`,
		r.Status, r.Stage, r.TotalMoves, finished, r.ID,
	)
	return err
}

// InsertAttempt records one score-recording outcome.
func (s *SQLite) InsertAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO score_attempts (id, session_id, stage, moves, status, tx_hash, error)
        VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))`,
		a.ID, a.SessionID, a.Stage, a.Moves, a.Status, a.TxHash, a.Error,
	)
	return err
}

// RecentAttempts lists the newest attempts across all sessions of address.
func (s *SQLite) RecentAttempts(ctx context.Context, address string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT a.id, a.session_id, a.stage, a.moves, a.status,
               COALESCE(a.tx_hash, ''), COALESCE(a.error, ''), a.created_at
        FROM score_attempts a
        JOIN sessions s ON s.id = a.session_id
        WHERE s.address = ?
        ORDER BY a.created_at DESC, a.rowid DESC
        LIMIT ?`, strings.ToLower(address), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Attempt, 0, limit)
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Stage, &a.Moves, &a.Status, &a.TxHash, &a.Error, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SessionAttempts lists attempts of one session, newest first.
func (s *SQLite) SessionAttempts(ctx context.Context, sessionID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, session_id, stage, moves, status,
               COALESCE(tx_hash, ''), COALESCE(error, ''), created_at
        FROM score_attempts
        WHERE session_id = ?
        ORDER BY created_at DESC, rowid DESC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Stage, &a.Moves, &a.Status, &a.TxHash, &a.Error, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
