package store_test

import (
	"context"
	"errors"
	"testing"

	"pagesync/internal/cms"
	"pagesync/internal/store"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) cms.Store {
		return store.NewMemoryStore()
	})
}

func TestMemoryStore_List(t *testing.T) {
	t.Run("root lists direct children only", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		st.Seed("home.json", []byte(`{}`))
		st.Seed("about.html", []byte("<p/>"))
		st.Seed("images/logo.png", []byte("png"))

		entries, err := st.List(context.Background(), "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want 2: %v", len(entries), entries)
		}
	})

	t.Run("subdirectory lists its files", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		st.Seed("images/logo.png", []byte("png"))
		st.Seed("images/banner.png", []byte("png"))
		st.Seed("images/archive/old.png", []byte("png"))

		entries, err := st.List(context.Background(), "images")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want 2: %v", len(entries), entries)
		}
		for _, e := range entries {
			if e.Kind != cms.KindBinary {
				t.Errorf("entry %s kind = %v, want binary", e.Path, e.Kind)
			}
		}
	})

	t.Run("missing directory fails with not found", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemoryStore()
		_, err := st.List(context.Background(), "nope")
		if !errors.Is(err, cms.ErrNotFound) {
			t.Fatalf("List() error = %v, want ErrNotFound", err)
		}
	})
}

func TestMemoryStore_Seed(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	token := st.Seed("page.json", []byte("seeded"))

	rev, err := st.Read(context.Background(), "page.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if rev.Token != token {
		t.Errorf("Read() token = %q, want seed token %q", rev.Token, token)
	}
	if string(rev.Content) != "seeded" {
		t.Errorf("Read() content = %q, want seeded", rev.Content)
	}
}
