package cms

import (
	"context"
	"errors"
	"sort"
)

// Discovery lists the editable pages a repository offers.
type Discovery struct {
	store  Store
	logger Logger
}

// NewDiscovery creates a Discovery over the given store.
func NewDiscovery(store Store, logger Logger) *Discovery {
	return &Discovery{store: store, logger: logger}
}

// Pages lists the repository root and returns the JSON and HTML entries,
// sorted lexicographically by name.
//
// A listing failure degrades to an empty result rather than an error: no
// page data is destroyed by this path, the operator just sees no pages
// until the store recovers. The one exception is ErrAuthFailure, which is
// returned so the caller can force re-authentication.
func (d *Discovery) Pages(ctx context.Context) ([]Entry, error) {
	entries, err := d.store.List(ctx, "")
	if err != nil {
		if errors.Is(err, ErrAuthFailure) {
			return nil, err
		}
		d.logger.Warn("page listing failed, treating as no pages", "err", err)
		return nil, nil
	}

	var pages []Entry
	for _, e := range entries {
		if e.Kind == KindJSON || e.Kind == KindHTML {
			pages = append(pages, e)
		}
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Name < pages[j].Name })
	return pages, nil
}
