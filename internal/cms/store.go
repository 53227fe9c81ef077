package cms

import (
	"context"
	"path"
	"strings"
)

// Kind classifies a stored file by the editor that applies to it.
type Kind string

const (
	KindJSON   Kind = "json"
	KindHTML   Kind = "html"
	KindBinary Kind = "binary"
)

// KindForPath classifies a path by its extension. Anything that is not a
// JSON or HTML page is treated as a binary asset.
func KindForPath(p string) Kind {
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return KindJSON
	case ".html", ".htm":
		return KindHTML
	default:
		return KindBinary
	}
}

// RepoRef identifies the remote content repository a session is bound to.
// It is immutable once a session is configured; constructors receive it by
// value rather than reading process-wide state.
type RepoRef struct {
	Owner  string
	Repo   string
	Branch string
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Repo + "@" + r.Branch
}

// Entry is a single file known to the store.
type Entry struct {
	Path string // unique key within a branch
	Name string // final path segment
	Kind Kind
}

// NewEntry builds an Entry for a path, deriving name and kind.
func NewEntry(p string) Entry {
	return Entry{Path: p, Name: path.Base(p), Kind: KindForPath(p)}
}

// Revision is the content of a path together with the opaque revision token
// the store assigned to it. The token changes on every write and must be
// presented on the next conditional write or delete of the same path.
type Revision struct {
	Path    string
	Content []byte
	Token   string
}

// Store is the repository boundary: a content-addressed file API keyed by
// path within a configured branch. Writes and deletes to existing paths are
// conditional on the revision token last observed for that path.
//
// All operations are single-shot with no internal retry; retry policy
// belongs to the caller (the Synchronizer, for page saves).
type Store interface {
	// List returns the entries directly under dir ("" for the root).
	// Fails with ErrNotFound if dir is absent, ErrAuthFailure if the
	// credentials are rejected.
	List(ctx context.Context, dir string) ([]Entry, error)

	// Read returns the content and current revision token of path.
	// Fails with ErrNotFound.
	Read(ctx context.Context, path string) (*Revision, error)

	// Write stores content at path and returns the new revision token.
	// message describes the change for stores that record one.
	//
	// A non-empty token makes the write conditional: the store verifies it
	// still matches the current revision and fails with ErrConflict
	// otherwise. An empty token is a create and fails with
	// ErrAlreadyExists if the path is already present — omitting the token
	// is only safe for genuinely new paths.
	Write(ctx context.Context, path string, content []byte, message, token string) (string, error)

	// Delete removes path. Fails with ErrConflict on a stale token and
	// ErrNotFound if the path is already gone.
	Delete(ctx context.Context, path, message, token string) error
}
