package cms

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// PageState is the lifecycle state of the open page.
type PageState int

const (
	// StateClean means the in-memory content matches the last confirmed
	// store revision.
	StateClean PageState = iota

	// StateDirty means the page has local edits not yet committed.
	StateDirty

	// StateSaving means a save is in flight. Edits and further saves are
	// rejected with ErrBusy until it resolves.
	StateSaving

	// StateSaveFailed means the last save hit a revision conflict. The
	// edited content is preserved; the page must be reopened to reconcile.
	StateSaveFailed
)

func (s PageState) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	case StateSaveFailed:
		return "save-failed"
	default:
		return fmt.Sprintf("PageState(%d)", int(s))
	}
}

// Page is a snapshot of the page currently open in a Synchronizer.
type Page struct {
	Entry   Entry
	Content []byte
	Token   string
	State   PageState
}

// Synchronizer reconciles one open page against the store. It owns the
// Clean → Dirty → Saving → {Clean, SaveFailed} state machine and the
// read-modify-write protocol, including the held-token conditional write
// and the confirmatory re-read after a successful commit.
//
// A Synchronizer holds at most one page at a time, matching the editor's
// one-page-open model. Different paths edited concurrently get their own
// Synchronizer instances; there is no shared lock between them. Cross-
// session conflicts are detected solely by the store's revision token
// check at save time.
type Synchronizer struct {
	store  Store
	logger Logger

	mu   sync.Mutex
	page *Page
}

// NewSynchronizer creates a Synchronizer over the given store.
func NewSynchronizer(store Store, logger Logger) *Synchronizer {
	return &Synchronizer{store: store, logger: logger}
}

// Open reads path from the store and makes it the open page in the Clean
// state.
//
// If a different page is open with unsaved edits, Open fails with
// ErrUnsavedChanges: the synchronizer never silently discards Dirty state.
// The caller confirms with the operator and calls Discard first. Reopening
// the same path is always allowed — that is how a failed save reconciles.
func (s *Synchronizer) Open(ctx context.Context, path string) (Page, error) {
	s.mu.Lock()
	if s.page != nil {
		if s.page.State == StateSaving {
			s.mu.Unlock()
			return Page{}, fmt.Errorf("open %s: %w", path, ErrBusy)
		}
		if s.page.Entry.Path != path && (s.page.State == StateDirty || s.page.State == StateSaveFailed) {
			s.mu.Unlock()
			return Page{}, fmt.Errorf("open %s while %s is %s: %w", path, s.page.Entry.Path, s.page.State, ErrUnsavedChanges)
		}
	}
	s.mu.Unlock()

	rev, err := s.store.Read(ctx, path)
	if err != nil {
		return Page{}, fmt.Errorf("opening %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = &Page{
		Entry:   NewEntry(path),
		Content: rev.Content,
		Token:   rev.Token,
		State:   StateClean,
	}
	s.logger.Debug("page opened", "path", path, "token", rev.Token)
	return *s.page, nil
}

// Discard drops the open page regardless of its state. Callers invoke it
// only after the operator confirmed that local edits may be lost.
func (s *Synchronizer) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page != nil {
		s.logger.Debug("page discarded", "path", s.page.Entry.Path, "state", s.page.State.String())
	}
	s.page = nil
}

// Edit replaces the in-memory content and marks the page Dirty. It never
// touches the store. Allowed from Clean or Dirty only.
func (s *Synchronizer) Edit(content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return fmt.Errorf("edit: no page open")
	}
	switch s.page.State {
	case StateSaving:
		return fmt.Errorf("edit %s: %w", s.page.Entry.Path, ErrBusy)
	case StateSaveFailed:
		return fmt.Errorf("edit %s: %w", s.page.Entry.Path, ErrReopenRequired)
	}

	s.page.Content = content
	s.page.State = StateDirty
	return nil
}

// Save commits the dirty content using the revision token held since the
// last Open or Save. The token is sent directly; no pre-read is needed.
//
// On ErrConflict the save fails without retry: the page enters SaveFailed
// with its content preserved, and the operator reconciles by reopening.
// Last-write-wins is explicitly rejected — the conflict is surfaced, never
// silently overwritten. On any other store failure the page returns to
// Dirty so the save can simply be retried.
//
// On success the synchronizer re-reads the path and replaces the in-memory
// content and token with what the store now holds, defending against
// server-side content transformation.
//
// Save from Clean is an idempotent no-op. A Save while another is in
// flight fails with ErrBusy rather than queueing.
func (s *Synchronizer) Save(ctx context.Context, message string) error {
	s.mu.Lock()
	if s.page == nil {
		s.mu.Unlock()
		return fmt.Errorf("save: no page open")
	}
	switch s.page.State {
	case StateClean:
		s.mu.Unlock()
		return nil // nothing to do
	case StateSaving:
		path := s.page.Entry.Path
		s.mu.Unlock()
		return fmt.Errorf("save %s: %w", path, ErrBusy)
	case StateSaveFailed:
		path := s.page.Entry.Path
		s.mu.Unlock()
		return fmt.Errorf("save %s: %w", path, ErrReopenRequired)
	}

	path := s.page.Entry.Path
	content := s.page.Content
	token := s.page.Token
	s.page.State = StateSaving
	s.mu.Unlock()

	newToken, err := s.store.Write(ctx, path, content, message, token)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.discardedDuring(path) {
			return fmt.Errorf("saving %s: %w", path, err)
		}
		if errors.Is(err, ErrConflict) {
			s.page.State = StateSaveFailed
			s.logger.Warn("save conflict, page needs reopen", "path", path, "token", token)
		} else {
			s.page.State = StateDirty
		}
		return fmt.Errorf("saving %s: %w", path, err)
	}

	// Confirmatory re-read: take whatever the store now holds, in case it
	// transformed the content (line-ending normalization and the like).
	rev, readErr := s.store.Read(ctx, path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discardedDuring(path) {
		// The write committed, but the operator dropped the page while it
		// was in flight. Nothing left to update locally.
		s.logger.Info("page saved after discard", "path", path, "token", newToken)
		return nil
	}
	if readErr != nil {
		// The write itself succeeded; keep the local content and the
		// token the write returned.
		s.logger.Warn("confirmatory re-read failed", "path", path, "err", readErr)
		s.page.Token = newToken
	} else {
		s.page.Content = rev.Content
		s.page.Token = rev.Token
	}
	s.page.State = StateClean
	s.logger.Info("page saved", "path", path, "token", s.page.Token)
	return nil
}

// discardedDuring reports whether the page a save was started for is gone
// or replaced. Discard is allowed while a save is in flight (and a reopen
// may follow it), so Save must re-check that it still owns the page before
// touching s.page. Only the in-flight save puts a page in StateSaving.
// Called with the lock held.
func (s *Synchronizer) discardedDuring(path string) bool {
	return s.page == nil || s.page.Entry.Path != path || s.page.State != StateSaving
}

// Current returns a snapshot of the open page, or false when none is open.
func (s *Synchronizer) Current() (Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return Page{}, false
	}
	return *s.page, true
}
