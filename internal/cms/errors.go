package cms

import "errors"

// Sentinel errors shared across the store backends and the synchronizer.
// Backends translate their transport-specific failures into these so callers
// can branch with errors.Is without knowing which backend is configured.
var (
	// ErrNotFound indicates the path does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conditional write or delete carried a stale
	// revision token: another writer committed since the token was read.
	ErrConflict = errors.New("stale revision token")

	// ErrAlreadyExists indicates a create (write with no revision token)
	// hit a path that already exists.
	ErrAlreadyExists = errors.New("path already exists")

	// ErrAuthFailure indicates the store rejected the credentials. It
	// propagates to the caller to force re-authentication.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrBusy indicates a save is already in flight for the open page.
	// Overlapping saves are rejected, never queued.
	ErrBusy = errors.New("save already in flight")

	// ErrInvalidContent indicates page content that must be structured
	// JSON could not be parsed or failed its schema validator.
	ErrInvalidContent = errors.New("invalid content")

	// ErrUnsavedChanges indicates opening a different page would discard
	// local edits. The caller must confirm and call Discard first.
	ErrUnsavedChanges = errors.New("page has unsaved changes")

	// ErrReopenRequired indicates the page is in the save-failed state and
	// must be reopened to reconcile against the store.
	ErrReopenRequired = errors.New("page must be reopened after failed save")
)
