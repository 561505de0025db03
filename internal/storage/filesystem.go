package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps working files for image edits on the local filesystem.
// Downloads and edit outputs live under <base>/tmp and are removed by their
// owner once uploaded.
type FileStore struct {
	basePath string
	tempPath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	tempPath := filepath.Join(abs, "tmp")
	if err := os.MkdirAll(tempPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: abs, tempPath: tempPath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// CreateTemp opens a new uniquely named file in the temp directory.
func (s *FileStore) CreateTemp(pattern string) (*os.File, error) {
	if s == nil {
		return nil, errors.New("storage: no store configured")
	}
	f, err := os.CreateTemp(s.tempPath, pattern)
	if err != nil {
		return nil, fmt.Errorf("storage: create temp file: %w", err)
	}
	return f, nil
}

// Write persists the provided bytes at the given relative key and returns the
// full path. Keys are cleaned to prevent directory traversal.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return fullPath, nil
}

// Resolve maps a local path onto the store. Paths outside the root are rejected.
func (s *FileStore) Resolve(path string) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	candidate := path
	if !filepath.IsAbs(candidate) {
		cleanKey, err := sanitizeKey(path)
		if err != nil {
			return "", err
		}
		candidate = filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	}
	candidate = filepath.Clean(candidate)
	rel, err := filepath.Rel(s.basePath, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("storage: path outside storage root")
	}
	return candidate, nil
}

// Remove deletes a file, ignoring files that are already gone.
func (s *FileStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
