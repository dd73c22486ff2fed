// Package archive stores the immutable artifacts of funding runs: input
// snapshots and allocation results, keyed by round. It backs the hosted API
// and lets any historical run be replayed bit-for-bit.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StorageClient abstracts blob storage for snapshots and allocation results.
type StorageClient interface {
	PutSnapshot(ctx context.Context, round, snapshotID string, data []byte) error
	GetSnapshot(ctx context.Context, round, snapshotID string) ([]byte, error)
	PutResult(ctx context.Context, round, runID string, data []byte) error
	GetResult(ctx context.Context, round, runID string) ([]byte, error)
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(round, kind, id string) string {
	return filepath.Join(s.BaseDir, round, kind, id+".json")
}

func (s *LocalStorage) put(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PutSnapshot stores a snapshot blob.
func (s *LocalStorage) PutSnapshot(ctx context.Context, round, snapshotID string, data []byte) error {
	return s.put(s.path(round, "snapshots", snapshotID), data)
}

// GetSnapshot retrieves a snapshot blob.
func (s *LocalStorage) GetSnapshot(ctx context.Context, round, snapshotID string) ([]byte, error) {
	return os.ReadFile(s.path(round, "snapshots", snapshotID))
}

// PutResult stores an allocation result blob.
func (s *LocalStorage) PutResult(ctx context.Context, round, runID string, data []byte) error {
	return s.put(s.path(round, "results", runID), data)
}

// GetResult retrieves an allocation result blob.
func (s *LocalStorage) GetResult(ctx context.Context, round, runID string) ([]byte, error) {
	return os.ReadFile(s.path(round, "results", runID))
}
