package testutil

import (
	"fmt"
	"sync"

	"pagesync/internal/cms"
)

// SequenceIDs is a cms.IDGenerator that hands out id-1, id-2, ... so test
// assertions can name IDs exactly.
type SequenceIDs struct {
	mu sync.Mutex
	n  int
}

var _ cms.IDGenerator = (*SequenceIDs)(nil)

func (s *SequenceIDs) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}
