// Package journal keeps a SQLite record of every adapter invocation:
// what ran, over which window, and how it ended. The journal is an
// operational aid for corpus-scale fleets; failures to write it are
// logged by callers and never abort a run.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pevans/newsharvest"
)

// Run is one journal row.
type Run struct {
	ID         uuid.UUID
	Site       string
	Mode       newsharvest.Mode
	Since      string
	Until      string
	StartedAt  time.Time
	FinishedAt time.Time
	Links      int
	Articles   int
	ItemErrors int
	// Outcome is "ok", "proxy_error", or the error kind that aborted
	// the run.
	Outcome string
}

// Journal wraps the SQLite database.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		site        TEXT NOT NULL,
		mode        TEXT NOT NULL,
		since       TEXT,
		until       TEXT,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		links       INTEGER NOT NULL DEFAULT 0,
		articles    INTEGER NOT NULL DEFAULT 0,
		item_errors INTEGER NOT NULL DEFAULT 0,
		outcome     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site, started_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts one finished run.
func (j *Journal) Record(run Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := j.db.Exec(`
		INSERT INTO runs (run_id, site, mode, since, until, started_at,
			finished_at, links, articles, item_errors, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Site, string(run.Mode), run.Since, run.Until,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Links, run.Articles, run.ItemErrors, run.Outcome,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// LastRuns returns the most recent runs for a site, newest first.
func (j *Journal) LastRuns(site string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.db.Query(`
		SELECT run_id, site, mode, since, until, started_at, finished_at,
			links, articles, item_errors, outcome
		FROM runs WHERE site = ?
		ORDER BY started_at DESC LIMIT ?`, site, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run              Run
			id, mode         string
			started, stopped string
		)
		if err := rows.Scan(&id, &run.Site, &mode, &run.Since, &run.Until,
			&started, &stopped, &run.Links, &run.Articles, &run.ItemErrors,
			&run.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.ID, _ = uuid.Parse(id)
		run.Mode = newsharvest.Mode(mode)
		run.StartedAt, _ = time.Parse(time.RFC3339, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339, stopped)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
