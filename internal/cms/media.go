package cms

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// MediaReplacer uploads binary assets under generated unique names and
// retires the assets they replace. It does not rewrite the page content
// that references an asset; the caller splices the returned path in.
type MediaReplacer struct {
	store  Store
	clock  Clock
	logger Logger
}

// NewMediaReplacer creates a MediaReplacer over the given store.
func NewMediaReplacer(store Store, clock Clock, logger Logger) *MediaReplacer {
	return &MediaReplacer{store: store, clock: clock, logger: logger}
}

// Replace uploads content as a new asset in folder and then retires the
// asset oldRef points at, returning the new relative path.
//
// The new name is the upload timestamp in milliseconds plus the sanitized
// original filename. That is unique enough for human-paced uploads within
// one folder; it is not a cryptographic guarantee.
//
// The old asset is deleted only after the upload confirmed, and the delete
// is best-effort: its error is logged and deliberately discarded, because
// the new asset is already safely stored and an orphaned old asset is
// tolerable cleanup debt, not a correctness violation.
func (m *MediaReplacer) Replace(ctx context.Context, folder, filename string, content []byte, oldRef string) (string, error) {
	name := fmt.Sprintf("%d-%s", m.clock.Now().UnixMilli(), SanitizeFilename(filename))
	newPath := path.Join(folder, name)

	// Create-only write: the generated name must not already exist.
	if _, err := m.store.Write(ctx, newPath, content, "upload "+name, ""); err != nil {
		return "", fmt.Errorf("uploading media %s: %w", newPath, err)
	}
	m.logger.Info("media uploaded", "path", newPath, "bytes", len(content))

	if oldRef != "" {
		if oldPath := OldAssetPath(folder, oldRef); oldPath != "" && oldPath != newPath {
			if err := m.Delete(ctx, folder, path.Base(oldPath)); err != nil {
				// Deliberately discarded; see above.
				m.logger.Warn("deleting replaced media failed", "path", oldPath, "err", err)
			}
		}
	}

	return newPath, nil
}

// Delete removes folder/name from the store, reading its current revision
// token first to satisfy the conditional delete contract.
func (m *MediaReplacer) Delete(ctx context.Context, folder, name string) error {
	p := path.Join(folder, name)
	rev, err := m.store.Read(ctx, p)
	if err != nil {
		return fmt.Errorf("resolving media %s: %w", p, err)
	}
	if err := m.store.Delete(ctx, p, "remove "+name, rev.Token); err != nil {
		return fmt.Errorf("deleting media %s: %w", p, err)
	}
	m.logger.Info("media deleted", "path", p)
	return nil
}

// SanitizeFilename reduces a filename to a safe character set: letters,
// digits, dot, dash and underscore. Everything else becomes an underscore.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}
	return out
}

// OldAssetPath extracts the store path of a previously referenced asset in
// folder from a reference string. Supported forms: an absolute URL whose
// path contains "/<folder>/", a relative path like "folder/name", or a
// bare filename. Returns "" when no filename can be extracted.
func OldAssetPath(folder, ref string) string {
	// Drop query string and fragment if the reference is a URL.
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}

	marker := "/" + folder + "/"
	if i := strings.LastIndex(ref, marker); i >= 0 {
		ref = ref[i+len(marker):]
	} else if strings.HasPrefix(ref, folder+"/") {
		ref = ref[len(folder)+1:]
	} else {
		ref = path.Base(ref)
	}

	if ref == "" || ref == "." || ref == "/" || strings.Contains(ref, "/") {
		return ""
	}
	return path.Join(folder, ref)
}
