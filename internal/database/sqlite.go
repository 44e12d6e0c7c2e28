package database

import (
	"database/sql"
	"fmt"
	"time"

	"tw-go/internal/database/migrations"
	"tw-go/internal/tw"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteHistory implements tw.History using SQLite.
type SQLiteHistory struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteHistory opens the history database at path and migrates it to
// the latest schema. path can be a file path or ":memory:".
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema out of date: %w", err)
	}

	return &SQLiteHistory{db: db, path: path, now: time.Now}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Run tracking

func (s *SQLiteHistory) StartRun(opID, operation, root, parameters string) (*tw.Run, error) {
	started := s.now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO runs (op_id, operation, root, parameters, started_at) VALUES (?, ?, ?, ?, ?)`,
		opID, operation, root, parameters, started,
	)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading run id: %w", err)
	}
	return &tw.Run{
		ID:         id,
		OpID:       opID,
		Operation:  operation,
		Root:       root,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  started,
	}, nil
}

func (s *SQLiteHistory) FinishRun(id int64, status string, stats tw.RunStats) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, finished_at = ?, entities = ?, added = ?, removed = ?, modified = ?, errors = ?
		 WHERE id = ?`,
		status, s.now().UTC(), stats.Entities, stats.Added, stats.Removed, stats.Modified, stats.Errors, id,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing run: no run with id %d", id)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit below 1 returns all runs.
func (s *SQLiteHistory) ListRuns(limit int) ([]*tw.Run, error) {
	if limit < 1 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, op_id, operation, root, parameters, status, started_at, finished_at,
		        entities, added, removed, modified, errors
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*tw.Run
	for rows.Next() {
		var r tw.Run
		err := rows.Scan(&r.ID, &r.OpID, &r.Operation, &r.Root, &r.Parameters, &r.Status,
			&r.StartedAt, &r.FinishedAt,
			&r.Stats.Entities, &r.Stats.Added, &r.Stats.Removed, &r.Stats.Modified, &r.Stats.Errors)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteHistory) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteHistory) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteHistory implements tw.History interface
var _ tw.History = (*SQLiteHistory)(nil)
