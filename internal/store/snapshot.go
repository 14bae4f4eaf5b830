// Package store persists the yearly publications snapshot as a single JSON
// document on the local filesystem.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/scraper"
)

// PersistenceError reports an I/O failure reading or writing a snapshot.
// The orchestrator surfaces it as a failed run while keeping the extracted
// records in memory for a caller-driven retry.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store reads and writes year-named snapshot files under one data directory.
type Store struct {
	dataDir string
	logger  *zap.Logger
}

// New creates a Store rooted at dataDir, creating the directory if needed.
func New(dataDir string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir, logger: logger}, nil
}

// Path returns the snapshot file path for a year.
func (s *Store) Path(year int) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("court-accounts-publications-%d.json", year))
}

// ExistingCount reports the item count recorded in the year's snapshot, or
// zero when no snapshot exists.
func (s *Store) ExistingCount(year int) (int, error) {
	snap, err := s.Read(year)
	if err != nil {
		if os.IsNotExist(errCause(err)) {
			return 0, nil
		}
		return 0, err
	}
	return snap.TotalItems, nil
}

// Read loads the year's snapshot.
func (s *Store) Read(year int) (scraper.Snapshot, error) {
	path := s.Path(year)
	data, err := os.ReadFile(path)
	if err != nil {
		return scraper.Snapshot{}, &PersistenceError{Path: path, Err: err}
	}
	var snap scraper.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return scraper.Snapshot{}, &PersistenceError{Path: path, Err: err}
	}
	return snap, nil
}

// Write persists the year's snapshot wholesale, replacing any prior
// content. The payload lands in a temporary file first and is renamed into
// place so a crash mid-write never leaves a torn snapshot behind.
func (s *Store) Write(year int, snap scraper.Snapshot) error {
	path := s.Path(year)
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(s.dataDir, ".snapshot-*.json")
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return &PersistenceError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}

	if s.logger != nil {
		s.logger.Info("snapshot written",
			zap.String("path", path),
			zap.Int("items", snap.TotalItems),
		)
	}
	return nil
}

func errCause(err error) error {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return perr.Err
	}
	return err
}
