package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportStore keeps generated report files on local disk under one base
// directory. Names handed to callers are always relative to that directory.
type ExportStore struct {
	baseDir string
}

// NewExportStore ensures the base directory exists and returns a handle.
func NewExportStore(baseDir string) (*ExportStore, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports directory: %w", err)
	}
	return &ExportStore{baseDir: baseDir}, nil
}

// Save writes a rendered report under the given relative name.
func (s *ExportStore) Save(name string, data []byte) (string, error) {
	path := s.resolve(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return name, nil
}

// Open returns a read-only handle for the stored report.
func (s *ExportStore) Open(name string) (*os.File, error) {
	file, err := os.Open(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// Delete removes a stored report if present.
func (s *ExportStore) Delete(name string) error {
	if err := os.Remove(s.resolve(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete export file: %w", err)
	}
	return nil
}

// Sweep removes reports whose modification time predates the retention
// window and returns the relative names it deleted.
func (s *ExportStore) Sweep(retention time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-retention)
	removed := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		removed = append(removed, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sweep exports: %w", err)
	}
	return removed, nil
}

// Path resolves a stored report's absolute location.
func (s *ExportStore) Path(name string) string {
	return s.resolve(name)
}

func (s *ExportStore) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.baseDir, name)
}
