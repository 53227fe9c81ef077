package testutil

import "pagesync/internal/store"

// NewTestStore creates a new in-memory store for testing.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore()
}
