package store_test

import (
	"context"
	"errors"
	"testing"

	"pagesync/internal/cms"
	"pagesync/internal/config"
	"pagesync/internal/store"
)

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		st, err := store.NewStoreFromConfig(context.Background(), config.StoreConfig{Type: "memory"}, "")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := st.(*store.MemoryStore); !ok {
			t.Fatalf("got %T, want *store.MemoryStore", st)
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		t.Parallel()
		cfg := config.StoreConfig{Type: "filesystem", FSRoot: t.TempDir()}
		st, err := store.NewStoreFromConfig(context.Background(), cfg, "")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := st.(*store.FileSystemStore); !ok {
			t.Fatalf("got %T, want *store.FileSystemStore", st)
		}
	})

	t.Run("filesystem without root fails", func(t *testing.T) {
		t.Parallel()
		_, err := store.NewStoreFromConfig(context.Background(), config.StoreConfig{Type: "filesystem"}, "")
		if err == nil {
			t.Fatal("NewStoreFromConfig() succeeded without fs_root")
		}
	})

	t.Run("github without token fails with auth failure", func(t *testing.T) {
		t.Parallel()
		cfg := config.StoreConfig{Type: "github", Owner: "acme", Repo: "site", Branch: "master"}
		_, err := store.NewStoreFromConfig(context.Background(), cfg, "")
		if !errors.Is(err, cms.ErrAuthFailure) {
			t.Fatalf("NewStoreFromConfig() error = %v, want ErrAuthFailure", err)
		}
	})

	t.Run("github without repo coordinates fails", func(t *testing.T) {
		t.Parallel()
		cfg := config.StoreConfig{Type: "github", Owner: "acme"}
		if _, err := store.NewStoreFromConfig(context.Background(), cfg, "tok"); err == nil {
			t.Fatal("NewStoreFromConfig() succeeded without repo and branch")
		}
	})

	t.Run("unknown type fails", func(t *testing.T) {
		t.Parallel()
		if _, err := store.NewStoreFromConfig(context.Background(), config.StoreConfig{Type: "ftp"}, ""); err == nil {
			t.Fatal("NewStoreFromConfig() succeeded for unknown type")
		}
	})
}
