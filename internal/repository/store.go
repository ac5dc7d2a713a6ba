package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ChuLiYu/schedsim/pkg/types"
)

var (
	// ErrCorruptedStore is returned when persisted data cannot be decoded.
	ErrCorruptedStore = errors.New("process store is corrupted")
	// ErrUnsupportedFormat is returned for an unknown file extension.
	ErrUnsupportedFormat = errors.New("unsupported store format")
)

// Store persists a process set.
type Store interface {
	// Load returns the persisted processes in their saved order. A store
	// that has never been written loads as empty.
	Load(ctx context.Context) ([]types.Process, error)
	// Save replaces the persisted processes with procs.
	Save(ctx context.Context, procs []types.Process) error
	Close() error
}

// OpenStore picks a Store implementation from the path extension:
// .db/.sqlite/.sqlite3 open SQLite, .json/.csv/.yaml/.yml use a FileStore.
func OpenStore(ctx context.Context, path string, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		st, err := NewSQLiteStore(path, logger)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	default:
		return NewFileStore(path, logger)
	}
}

// Load fills repo from st, replacing its content.
func Load(ctx context.Context, repo *Repository, st Store) error {
	procs, err := st.Load(ctx)
	if err != nil {
		return err
	}
	if err := repo.Replace(procs); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptedStore, err)
	}
	return nil
}

// Save writes the content of repo to st.
func Save(ctx context.Context, repo *Repository, st Store) error {
	return st.Save(ctx, repo.List())
}
