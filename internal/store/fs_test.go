package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pagesync/internal/cms"
	"pagesync/internal/store"
)

func newFSStore(t *testing.T) cms.Store {
	t.Helper()
	st, err := store.NewFileSystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	return st
}

func TestFileSystemStore_Contract(t *testing.T) {
	runStoreContract(t, newFSStore)
}

func TestFileSystemStore_RootValidation(t *testing.T) {
	t.Run("missing root is rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := store.NewFileSystemStore(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Fatal("NewFileSystemStore() with missing root succeeded")
		}
	})

	t.Run("file as root is rejected", func(t *testing.T) {
		t.Parallel()
		f := filepath.Join(t.TempDir(), "afile")
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.NewFileSystemStore(f); err == nil {
			t.Fatal("NewFileSystemStore() with file root succeeded")
		}
	})
}

func TestFileSystemStore_CreatesParentDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	st, err := store.NewFileSystemStore(root)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := st.Write(context.Background(), "images/2026/logo.png", []byte("png"), "upload", ""); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "images", "2026", "logo.png")); err != nil {
		t.Fatalf("written file missing on disk: %v", err)
	}
}

func TestFileSystemStore_List(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, f := range []string{"home.json", "about.html"} {
		if err := os.WriteFile(filepath.Join(root, f), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, "images"), 0755); err != nil {
		t.Fatal(err)
	}

	st, err := store.NewFileSystemStore(root)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := st.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (directories are skipped): %v", len(entries), entries)
	}
}

func TestFileSystemStore_TokenTracksDiskState(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	st, err := store.NewFileSystemStore(root)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	token, err := st.Write(ctx, "page.html", []byte("<p>a</p>"), "create", "")
	if err != nil {
		t.Fatal(err)
	}

	// Edit the file behind the store's back, as another tool would.
	if err := os.WriteFile(filepath.Join(root, "page.html"), []byte("<p>b</p>"), 0644); err != nil {
		t.Fatal(err)
	}

	rev, err := st.Read(ctx, "page.html")
	if err != nil {
		t.Fatal(err)
	}
	if rev.Token == token {
		t.Error("token unchanged after out-of-band edit; it must track file content")
	}
}
