package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"jira-issue-sync/jira"
)

var ErrEmptyKey = errors.New("issue key is empty")

// DB represents the database connection.
type DB struct {
	*sql.DB
}

// NewDB opens the SQLite database at path, creating the file, its directory
// and the schema when they do not exist.
func NewDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// One writer at a time; SQLite would return SQLITE_BUSY otherwise.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db}, nil
}

func createSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS issue (
		id INTEGER NOT NULL DEFAULT 0,
		[key] TEXT NOT NULL UNIQUE,
		last_updated TIMESTAMP NULL
	);

	CREATE TABLE IF NOT EXISTS project_sync (
		project TEXT PRIMARY KEY,
		last_snapshot TIMESTAMP NULL,
		resume_offset INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := db.Exec(query)
	return err
}

// Issue is a stored issue row.
type Issue struct {
	ID          int64
	Key         string
	LastUpdated sql.NullTime
}

// Checkpoint records how far the last sync of a project got. LastSyncedAt is
// the zero time until a run has completed; ResumeOffset is the offset reached
// by an interrupted run and 0 after a complete one.
type Checkpoint struct {
	Project      string
	LastSyncedAt time.Time
	ResumeOffset int
}

// UpsertSummaries inserts the issues whose key is not stored yet and returns
// how many rows were written. Keys that already exist are left untouched.
// The batch is written in a single transaction.
func (db *DB) UpsertSummaries(ctx context.Context, issues []jira.IssueSummary) (int, error) {
	if len(issues) == 0 {
		return 0, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO issue (id, [key], last_updated) VALUES (?, ?, ?) ON CONFLICT([key]) DO NOTHING")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, issue := range issues {
		if issue.Key == "" {
			return 0, ErrEmptyKey
		}
		var updated sql.NullTime
		if issue.Updated != nil {
			updated = sql.NullTime{Time: issue.Updated.UTC(), Valid: true}
		}
		res, err := stmt.ExecContext(ctx, issue.ID, issue.Key, updated)
		if err != nil {
			return 0, fmt.Errorf("failed to insert issue %s: %w", issue.Key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return written, nil
}

// GetIssue retrieves a stored issue by key. It returns nil when the key is
// not stored.
func (db *DB) GetIssue(ctx context.Context, key string) (*Issue, error) {
	var issue Issue
	query := "SELECT id, [key], last_updated FROM issue WHERE [key] = ?"
	err := db.QueryRowContext(ctx, query, key).Scan(&issue.ID, &issue.Key, &issue.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &issue, nil
}

// CountIssues returns the number of stored issues.
func (db *DB) CountIssues(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM issue").Scan(&n)
	return n, err
}

// GetCheckpoint retrieves the checkpoint of project. It returns nil when the
// project has never been synced.
func (db *DB) GetCheckpoint(ctx context.Context, project string) (*Checkpoint, error) {
	cp := Checkpoint{Project: project}
	var last sql.NullTime
	query := "SELECT last_snapshot, resume_offset FROM project_sync WHERE project = ?"
	err := db.QueryRowContext(ctx, query, project).Scan(&last, &cp.ResumeOffset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if last.Valid {
		cp.LastSyncedAt = last.Time
	}
	return &cp, nil
}

// SetCheckpoint overwrites the checkpoint row of project.
func (db *DB) SetCheckpoint(ctx context.Context, project string, cp Checkpoint) error {
	var last sql.NullTime
	if !cp.LastSyncedAt.IsZero() {
		last = sql.NullTime{Time: cp.LastSyncedAt.UTC(), Valid: true}
	}
	query := "INSERT OR REPLACE INTO project_sync (project, last_snapshot, resume_offset) VALUES (?, ?, ?)"
	_, err := db.ExecContext(ctx, query, project, last, cp.ResumeOffset)
	return err
}
