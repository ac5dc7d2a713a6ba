package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ChuLiYu/schedsim/pkg/types"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS processes (
		id       TEXT PRIMARY KEY,
		duration INTEGER NOT NULL CHECK (duration > 0),
		priority INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_processes_position ON processes(position)`,
}

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath. ":memory:"
// gives a private in-memory database.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store", "path", dbPath),
	}, nil
}

// Migrate creates the schema. It is idempotent.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns every stored process ordered by position.
func (s *SQLiteStore) Load(ctx context.Context) ([]types.Process, error) {
	s.logger.Debug("sql", "op", "select", "table", "processes")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, duration, priority FROM processes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select processes: %w", err)
	}
	defer rows.Close()

	procs := make([]types.Process, 0)
	for rows.Next() {
		var (
			id string
			p  types.Process
		)
		if err := rows.Scan(&id, &p.Duration, &p.Priority); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrCorruptedStore, err)
		}
		p.ID = types.ProcessID(id)
		procs = append(procs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select processes: %w", err)
	}
	return procs, nil
}

// Save replaces all rows with procs inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, procs []types.Process) error {
	s.logger.Debug("sql", "op", "replace", "table", "processes", "count", len(procs))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM processes`); err != nil {
		return fmt.Errorf("clear processes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO processes (id, duration, priority, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range procs {
		if _, err := stmt.ExecContext(ctx, string(p.ID), p.Duration, p.Priority, i); err != nil {
			return fmt.Errorf("insert process %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
