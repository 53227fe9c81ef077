package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"pagesync/internal/cms"
)

// FileSystemStore implements cms.Store on a local directory, for editing a
// checked-out copy of the content repository without network access. The
// revision token is the SHA-256 of the file content; conditional writes
// re-hash the current file under a coarse per-store lock, which is enough
// for the single-process use this backend targets.
type FileSystemStore struct {
	root string
	mu   sync.Mutex
}

// NewFileSystemStore creates a store rooted at the given directory.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("store root not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store root is not a directory: %s", root)
	}
	return &FileSystemStore{root: root}, nil
}

// List returns the file entries directly under dir ("" for the root).
func (f *FileSystemStore) List(_ context.Context, dir string) ([]cms.Entry, error) {
	full := filepath.Join(f.root, filepath.FromSlash(dir))
	items, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("listing %s: %w", dir, cms.ErrNotFound)
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var entries []cms.Entry
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		p := item.Name()
		if dir != "" {
			p = dir + "/" + p
		}
		entries = append(entries, cms.NewEntry(p))
	}
	return entries, nil
}

// Read returns the file content and its content hash.
func (f *FileSystemStore) Read(_ context.Context, path string) (*cms.Revision, error) {
	content, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, cms.ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &cms.Revision{Path: path, Content: content, Token: contentToken(content)}, nil
}

// Write stores content at path after verifying the token against the hash
// of what is currently on disk.
func (f *FileSystemStore) Write(_ context.Context, path string, content []byte, _, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	full := filepath.Join(f.root, filepath.FromSlash(path))

	current, err := os.ReadFile(full)
	switch {
	case os.IsNotExist(err):
		if token != "" {
			return "", fmt.Errorf("writing %s: %w", path, cms.ErrNotFound)
		}
	case err != nil:
		return "", fmt.Errorf("writing %s: %w", path, err)
	default:
		if token == "" {
			return "", fmt.Errorf("writing %s: %w", path, cms.ErrAlreadyExists)
		}
		if contentToken(current) != token {
			return "", fmt.Errorf("writing %s: %w", path, cms.ErrConflict)
		}
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := writeFileAtomic(full, content); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return contentToken(content), nil
}

// Delete removes path after verifying the token.
func (f *FileSystemStore) Delete(_ context.Context, path, _, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	full := filepath.Join(f.root, filepath.FromSlash(path))

	current, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("deleting %s: %w", path, cms.ErrNotFound)
		}
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	if contentToken(current) != token {
		return fmt.Errorf("deleting %s: %w", path, cms.ErrConflict)
	}

	if err := os.Remove(full); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

// contentToken hashes content into a revision token.
func contentToken(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes content via a temp file and rename so a crashed
// write never leaves a partial file behind.
func writeFileAtomic(dest string, content []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, bytes.NewReader(content)); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

var _ cms.Store = (*FileSystemStore)(nil)
