package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pagesync/internal/cms"
)

// MemoryStore is an in-memory implementation of the cms.Store interface.
// Revision tokens are fabricated from a per-store sequence so that every
// write observably changes the token. Useful for tests and the demo server.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]memoryRevision // path -> current revision
	seq   int64
}

type memoryRevision struct {
	content []byte
	token   string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]memoryRevision)}
}

// Seed stores content at path without the conditional-write checks and
// returns the assigned token. Intended for test setup.
func (m *MemoryStore) Seed(p string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := m.nextToken()
	m.files[p] = memoryRevision{content: append([]byte(nil), content...), token: token}
	return token
}

// nextToken must be called with the lock held.
func (m *MemoryStore) nextToken() string {
	m.seq++
	return fmt.Sprintf("r%06d", m.seq)
}

// List returns the entries directly under dir ("" for the root).
func (m *MemoryStore) List(_ context.Context, dir string) ([]cms.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := ""
	if dir != "" {
		prefix = strings.TrimSuffix(dir, "/") + "/"
	}

	var entries []cms.Entry
	for p := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		if strings.Contains(rest, "/") {
			continue // not a direct child
		}
		entries = append(entries, cms.NewEntry(p))
	}

	if dir != "" && len(entries) == 0 {
		return nil, fmt.Errorf("listing %s: %w", dir, cms.ErrNotFound)
	}
	return entries, nil
}

// Read returns the content and current revision token of path.
func (m *MemoryStore) Read(_ context.Context, p string) (*cms.Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rev, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", p, cms.ErrNotFound)
	}
	return &cms.Revision{
		Path:    p,
		Content: append([]byte(nil), rev.content...),
		Token:   rev.token,
	}, nil
}

// Write stores content at path, verifying the revision token against the
// current state exactly like a remote store would.
func (m *MemoryStore) Write(_ context.Context, p string, content []byte, _, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.files[p]
	if token == "" {
		if exists {
			return "", fmt.Errorf("writing %s: %w", p, cms.ErrAlreadyExists)
		}
	} else {
		if !exists {
			return "", fmt.Errorf("writing %s: %w", p, cms.ErrNotFound)
		}
		if cur.token != token {
			return "", fmt.Errorf("writing %s: %w", p, cms.ErrConflict)
		}
	}

	newToken := m.nextToken()
	m.files[p] = memoryRevision{content: append([]byte(nil), content...), token: newToken}
	return newToken, nil
}

// Delete removes path after verifying the revision token.
func (m *MemoryStore) Delete(_ context.Context, p, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.files[p]
	if !exists {
		return fmt.Errorf("deleting %s: %w", p, cms.ErrNotFound)
	}
	if cur.token != token {
		return fmt.Errorf("deleting %s: %w", p, cms.ErrConflict)
	}
	delete(m.files, p)
	return nil
}

// Paths returns the stored paths, for test assertions.
func (m *MemoryStore) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	return paths
}

var _ cms.Store = (*MemoryStore)(nil)
