package store_test

import (
	"context"
	"errors"
	"testing"

	"pagesync/internal/cms"
)

// runStoreContract exercises the conditional-write semantics every Store
// backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) cms.Store) {
	t.Helper()

	t.Run("create read update delete round trip", func(t *testing.T) {
		t.Parallel()
		st := newStore(t)
		ctx := context.Background()

		t1, err := st.Write(ctx, "home.json", []byte(`{"v":1}`), "create", "")
		if err != nil {
			t.Fatalf("create Write() error = %v", err)
		}
		if t1 == "" {
			t.Fatal("create returned an empty token")
		}

		rev, err := st.Read(ctx, "home.json")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if string(rev.Content) != `{"v":1}` {
			t.Errorf("Read() content = %q, want {\"v\":1}", rev.Content)
		}
		if rev.Token != t1 {
			t.Errorf("Read() token = %q, want %q", rev.Token, t1)
		}

		t2, err := st.Write(ctx, "home.json", []byte(`{"v":2}`), "update", t1)
		if err != nil {
			t.Fatalf("update Write() error = %v", err)
		}
		if t2 == t1 {
			t.Error("update did not change the token")
		}

		if err := st.Delete(ctx, "home.json", "remove", t2); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := st.Read(ctx, "home.json"); !errors.Is(err, cms.ErrNotFound) {
			t.Errorf("Read() after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("a spent token cannot authorize a second write", func(t *testing.T) {
		t.Parallel()
		st := newStore(t)
		ctx := context.Background()

		t1, err := st.Write(ctx, "page.json", []byte("one"), "create", "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := st.Write(ctx, "page.json", []byte("two"), "first", t1); err != nil {
			t.Fatal(err)
		}

		_, err = st.Write(ctx, "page.json", []byte("three"), "second", t1)
		if !errors.Is(err, cms.ErrConflict) {
			t.Fatalf("Write() with spent token error = %v, want ErrConflict", err)
		}

		rev, err := st.Read(ctx, "page.json")
		if err != nil {
			t.Fatal(err)
		}
		if string(rev.Content) != "two" {
			t.Errorf("content = %q, conflicting write must not apply", rev.Content)
		}
	})

	t.Run("create over an existing path is rejected", func(t *testing.T) {
		t.Parallel()
		st := newStore(t)
		ctx := context.Background()

		if _, err := st.Write(ctx, "page.json", []byte("x"), "create", ""); err != nil {
			t.Fatal(err)
		}
		_, err := st.Write(ctx, "page.json", []byte("y"), "create again", "")
		if !errors.Is(err, cms.ErrAlreadyExists) {
			t.Fatalf("Write() error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("conditional write to a missing path fails with not found", func(t *testing.T) {
		t.Parallel()
		st := newStore(t)
		_, err := st.Write(context.Background(), "ghost.json", []byte("x"), "update", "sometoken")
		if !errors.Is(err, cms.ErrNotFound) {
			t.Fatalf("Write() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete with a stale token is rejected", func(t *testing.T) {
		t.Parallel()
		st := newStore(t)
		ctx := context.Background()

		t1, err := st.Write(ctx, "page.json", []byte("one"), "create", "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := st.Write(ctx, "page.json", []byte("two"), "update", t1); err != nil {
			t.Fatal(err)
		}

		if err := st.Delete(ctx, "page.json", "remove", t1); !errors.Is(err, cms.ErrConflict) {
			t.Fatalf("Delete() error = %v, want ErrConflict", err)
		}
		if _, err := st.Read(ctx, "page.json"); err != nil {
			t.Errorf("page gone after rejected delete: %v", err)
		}
	})

	t.Run("read of a missing path fails with not found", func(t *testing.T) {
		t.Parallel()
		st := newStore(t)
		_, err := st.Read(context.Background(), "ghost.json")
		if !errors.Is(err, cms.ErrNotFound) {
			t.Fatalf("Read() error = %v, want ErrNotFound", err)
		}
	})
}
