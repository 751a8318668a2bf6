package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Outcome classifies what happened to one changed file.
type Outcome string

const (
	OutcomeSynced     Outcome = "synced"
	OutcomeResolved   Outcome = "resolved"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeCancelled  Outcome = "cancelled"
	OutcomeError      Outcome = "error"
)

// Entry is one row of the history.
type Entry struct {
	ID           string
	Repository   string
	RelativePath string
	RemotePath   string
	Strategy     string
	Outcome      Outcome
	Error        string
	Duration     time.Duration
	At           time.Time
}

// Journal records resolution and sync outcomes in SQLite.
type Journal struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	rowid INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	repository TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	remote_path TEXT NOT NULL DEFAULT '',
	strategy TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL CHECK(outcome IN ('synced', 'resolved', 'unresolved', 'cancelled', 'error')),
	error TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_repository ON entries(repository, rowid);
`

// Open opens or creates the journal database at path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// Syncs run concurrently; one connection keeps writers from racing for the lock.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug("journal opened", "path", path)
	return &Journal{conn: conn, path: path, logger: logger}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Record appends an entry. A zero At is set to now.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := j.conn.ExecContext(ctx, `
		INSERT INTO entries (id, repository, relative_path, remote_path, strategy, outcome, error, duration_ms, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Repository, e.RelativePath, e.RemotePath, e.Strategy, string(e.Outcome), e.Error,
		e.Duration.Milliseconds(), e.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.RelativePath, err)
	}
	return nil
}

// Filter narrows Recent. Zero values match everything.
type Filter struct {
	Repository string
	Outcome    Outcome
	Limit      int
}

// Recent returns the newest entries first.
func (j *Journal) Recent(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.conn.QueryContext(ctx, `
		SELECT id, repository, relative_path, remote_path, strategy, outcome, error, duration_ms, at
		FROM entries
		WHERE (? = '' OR repository = ?) AND (? = '' OR outcome = ?)
		ORDER BY rowid DESC
		LIMIT ?`,
		f.Repository, f.Repository, string(f.Outcome), string(f.Outcome), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			outcome    string
			durationMs int64
			at         string
		)
		if err := rows.Scan(&e.ID, &e.Repository, &e.RelativePath, &e.RemotePath, &e.Strategy, &outcome, &e.Error, &durationMs, &at); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing journal time %q: %w", at, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of entries per outcome for a repository.
func (j *Journal) Counts(ctx context.Context, repository string) (map[Outcome]int, error) {
	rows, err := j.conn.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM entries WHERE repository = ? GROUP BY outcome`, repository)
	if err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning journal count: %w", err)
		}
		counts[Outcome(outcome)] = n
	}
	return counts, rows.Err()
}
