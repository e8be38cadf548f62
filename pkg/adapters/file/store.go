package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aretw0/taleweave/pkg/domain"
)

// Store implements ports.KVStore using the local filesystem.
// Each collection is a JSON file; blobs live under a "blobs" subdirectory.
type Store struct {
	BasePath string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".taleweave/data".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".taleweave", "data")
	}
	return &Store{BasePath: basePath}
}

// Read decodes the collection file into dst.
func (s *Store) Read(ctx context.Context, collection string, dst any) (bool, error) {
	path, err := s.collectionPath(collection)
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read collection file: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal collection %s: %w", collection, err)
	}
	return true, nil
}

// Write persists the collection to a JSON file atomically.
func (s *Store) Write(ctx context.Context, collection string, value any) error {
	path, err := s.collectionPath(collection)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal collection %s: %w", collection, err)
	}
	return writeAtomic(path, data)
}

// GetBlob reads the blob stored under key.
func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	path, err := s.blobPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// SetBlob writes the blob atomically.
func (s *Store) SetBlob(ctx context.Context, key string, data []byte) error {
	path, err := s.blobPath(key)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// DeleteBlob removes the blob file. A missing blob is not an error.
func (s *Store) DeleteBlob(ctx context.Context, key string) error {
	path, err := s.blobPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Collections returns the names of the stored collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" && !strings.HasPrefix(entry.Name(), "tmp-") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return names, nil
}

func (s *Store) collectionPath(collection string) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("collection cannot be empty")
	}
	return filepath.Join(s.BasePath, unsafeName.ReplaceAllString(collection, "_")+".json"), nil
}

func (s *Store) blobPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blob key cannot be empty")
	}
	return filepath.Join(s.BasePath, "blobs", unsafeName.ReplaceAllString(key, "_")), nil
}

// writeAtomic writes to a temporary file in the destination directory, syncs it,
// and renames it over the destination.
func writeAtomic(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure data directory: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(destPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
