package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ChuLiYu/schedsim/pkg/types"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a FileStore.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

const csvSeparator = ';'

var csvHeader = []string{"id", "duration", "priority"}

// FormatFromPath derives the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// FileStore keeps the process set in a single file.
//
// Writes go to <path>.tmp first and are renamed over the target, so a crash
// mid-write never leaves a truncated file behind.
type FileStore struct {
	path   string
	format Format
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore returns a store for path; the format follows the extension.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{
		path:   path,
		format: format,
		logger: logger.With("component", "store", "path", path),
	}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the file. A missing file is an empty process set.
func (s *FileStore) Load(_ context.Context) ([]types.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("store file missing, starting empty")
			return []types.Process{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	procs, err := Decode(bytes.NewReader(data), s.format)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("loaded processes", "count", len(procs))
	return procs, nil
}

// Save atomically rewrites the file with procs.
func (s *FileStore) Save(_ context.Context, procs []types.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := Encode(&buf, s.format, procs); err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.logger.Debug("saved processes", "count", len(procs))
	return nil
}

// Close is a no-op; FileStore holds no open handles.
func (s *FileStore) Close() error { return nil }

// Encode writes procs to w in the given format.
func Encode(w io.Writer, format Format, procs []types.Process) error {
	if procs == nil {
		procs = []types.Process{}
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		if err := enc.Encode(procs); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(procs); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()

	case FormatCSV:
		cw := csv.NewWriter(w)
		cw.Comma = csvSeparator
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to encode csv: %w", err)
		}
		for _, p := range procs {
			row := []string{string(p.ID), strconv.Itoa(p.Duration), strconv.Itoa(p.Priority)}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to encode csv: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Decode reads a process list in the given format. Every process is
// validated; any malformed entry fails the whole decode with
// ErrCorruptedStore, also wrapping types.ErrInvalidProcess or
// ErrDuplicateProcess when one of those is the cause.
func Decode(r io.Reader, format Format) ([]types.Process, error) {
	var procs []types.Process

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&procs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedStore, err)
		}

	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&procs); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedStore, err)
		}

	case FormatCSV:
		var err error
		if procs, err = decodeCSV(r); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if procs == nil {
		procs = []types.Process{}
	}
	seen := make(map[types.ProcessID]struct{}, len(procs))
	for i, p := range procs {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrCorruptedStore, i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: entry %d: %w: %s", ErrCorruptedStore, i, ErrDuplicateProcess, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return procs, nil
}

func decodeCSV(r io.Reader) ([]types.Process, error) {
	cr := csv.NewReader(r)
	cr.Comma = csvSeparator
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedStore, err)
	}

	procs := make([]types.Process, 0, len(rows))
	for i, row := range rows {
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), csvHeader[0]) {
			continue
		}
		duration, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: duration: %v", ErrCorruptedStore, i+1, err)
		}
		priority, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: priority: %v", ErrCorruptedStore, i+1, err)
		}
		procs = append(procs, types.Process{
			ID:       types.ProcessID(strings.TrimSpace(row[0])),
			Duration: duration,
			Priority: priority,
		})
	}
	return procs, nil
}
