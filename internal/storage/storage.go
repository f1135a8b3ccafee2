// Package storage persists preset snapshot stores.
//
// Each preset engine's data is kept as one JSON document in the layout the
// engine loads verbatim:
//
//	{"<slot>": {"<nodeId>": {...state...}}}
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/gyaneshwarpardhi/patchpreset/internal/preset"
)

// Store loads and saves preset data by preset id.
type Store interface {
	Load(ctx context.Context, presetID string) (preset.Data, error)
	Save(ctx context.Context, presetID string, data preset.Data) error
	Delete(ctx context.Context, presetID string) error
}

// Nop discards everything. Used when no storage directory is configured.
type Nop struct{}

func (Nop) Load(context.Context, string) (preset.Data, error) { return nil, nil }
func (Nop) Save(context.Context, string, preset.Data) error   { return nil }
func (Nop) Delete(context.Context, string) error              { return nil }

var safeID = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileStore keeps one JSON file per preset in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates baseDir if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage: directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(presetID string) (string, error) {
	if !safeID.MatchString(presetID) || presetID == "." || presetID == ".." {
		return "", fmt.Errorf("storage: invalid preset id %q", presetID)
	}
	return filepath.Join(s.baseDir, presetID+".json"), nil
}

// Load returns nil data and no error when nothing was saved for presetID.
func (s *FileStore) Load(ctx context.Context, presetID string) (preset.Data, error) {
	path, err := s.path(presetID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// Save writes data through a temp file and rename so readers never see a
// partial document.
func (s *FileStore) Save(ctx context.Context, presetID string, data preset.Data) error {
	path, err := s.path(presetID)
	if err != nil {
		return err
	}
	if data == nil {
		data = preset.Data{}
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preset %s: %w", presetID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, presetID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write preset %s: %w", presetID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close preset %s: %w", presetID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename preset %s: %w", presetID, err)
	}
	return nil
}

// Delete removes the file for presetID; a missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, presetID string) error {
	path, err := s.path(presetID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete preset %s: %w", presetID, err)
	}
	return nil
}

// ReadFile decodes one persisted preset document. The returned error
// satisfies os.IsNotExist when the file is missing.
func ReadFile(path string) (preset.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data preset.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse preset file %s: %w", path, err)
	}
	return data, nil
}
