package database_test

import (
	"testing"
	"time"

	"pagesync/internal/database"
	"pagesync/internal/testutil"
)

func TestDrafts(t *testing.T) {
	t.Run("save and find round trip", func(t *testing.T) {
		t.Parallel()
		db := testutil.NewTestDatabase(t)

		draft := &database.Draft{
			Path:      "home.json",
			Content:   []byte(`{"v":2}`),
			BaseToken: "r000001",
			UpdatedAt: time.Now().UTC(),
		}
		if err := db.SaveDraft(draft); err != nil {
			t.Fatalf("SaveDraft() error = %v", err)
		}

		got, err := db.FindDraft("home.json")
		if err != nil {
			t.Fatalf("FindDraft() error = %v", err)
		}
		if got == nil {
			t.Fatal("FindDraft() = nil, want the saved draft")
		}
		if string(got.Content) != `{"v":2}` {
			t.Errorf("draft content = %q, want {\"v\":2}", got.Content)
		}
		if got.BaseToken != "r000001" {
			t.Errorf("draft base token = %q, want r000001", got.BaseToken)
		}
	})

	t.Run("saving again replaces the draft", func(t *testing.T) {
		t.Parallel()
		db := testutil.NewTestDatabase(t)

		first := &database.Draft{Path: "p.json", Content: []byte("one"), BaseToken: "t1", UpdatedAt: time.Now().UTC()}
		if err := db.SaveDraft(first); err != nil {
			t.Fatal(err)
		}
		second := &database.Draft{Path: "p.json", Content: []byte("two"), BaseToken: "t2", UpdatedAt: time.Now().UTC()}
		if err := db.SaveDraft(second); err != nil {
			t.Fatalf("SaveDraft() upsert error = %v", err)
		}

		got, err := db.FindDraft("p.json")
		if err != nil {
			t.Fatal(err)
		}
		if string(got.Content) != "two" || got.BaseToken != "t2" {
			t.Errorf("draft after upsert = %q/%q, want two/t2", got.Content, got.BaseToken)
		}

		drafts, err := db.ListDrafts()
		if err != nil {
			t.Fatal(err)
		}
		if len(drafts) != 1 {
			t.Errorf("got %d drafts, want 1", len(drafts))
		}
	})

	t.Run("find with no draft returns nil without error", func(t *testing.T) {
		t.Parallel()
		db := testutil.NewTestDatabase(t)

		got, err := db.FindDraft("missing.json")
		if err != nil {
			t.Fatalf("FindDraft() error = %v", err)
		}
		if got != nil {
			t.Fatalf("FindDraft() = %+v, want nil", got)
		}
	})

	t.Run("list is ordered by path", func(t *testing.T) {
		t.Parallel()
		db := testutil.NewTestDatabase(t)

		for _, p := range []string{"z.json", "a.json", "m.json"} {
			d := &database.Draft{Path: p, Content: []byte("x"), BaseToken: "t", UpdatedAt: time.Now().UTC()}
			if err := db.SaveDraft(d); err != nil {
				t.Fatal(err)
			}
		}

		drafts, err := db.ListDrafts()
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"a.json", "m.json", "z.json"}
		if len(drafts) != len(want) {
			t.Fatalf("got %d drafts, want %d", len(drafts), len(want))
		}
		for i, p := range want {
			if drafts[i].Path != p {
				t.Errorf("drafts[%d].Path = %q, want %q", i, drafts[i].Path, p)
			}
		}
	})

	t.Run("delete removes the draft", func(t *testing.T) {
		t.Parallel()
		db := testutil.NewTestDatabase(t)

		d := &database.Draft{Path: "p.json", Content: []byte("x"), BaseToken: "t", UpdatedAt: time.Now().UTC()}
		if err := db.SaveDraft(d); err != nil {
			t.Fatal(err)
		}
		if err := db.DeleteDraft("p.json"); err != nil {
			t.Fatalf("DeleteDraft() error = %v", err)
		}

		got, err := db.FindDraft("p.json")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("draft still present after delete: %+v", got)
		}

		// Deleting again is harmless.
		if err := db.DeleteDraft("p.json"); err != nil {
			t.Errorf("second DeleteDraft() error = %v", err)
		}
	})
}

func TestOperations(t *testing.T) {
	t.Run("create and finish", func(t *testing.T) {
		t.Parallel()
		db := testutil.NewTestDatabase(t)

		op, err := db.CreateOperation("put", `{"path":"home.json"}`)
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}
		if op.ID == 0 {
			t.Fatal("CreateOperation() returned id 0")
		}
		if op.Status != "running" {
			t.Errorf("new operation status = %q, want running", op.Status)
		}

		if err := db.FinishOperation(op.ID, "success"); err != nil {
			t.Fatalf("FinishOperation() error = %v", err)
		}

		ops, err := db.ListOperations(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 1 {
			t.Fatalf("got %d operations, want 1", len(ops))
		}
		if ops[0].Status != "success" {
			t.Errorf("finished status = %q, want success", ops[0].Status)
		}
		if !ops[0].FinishedAt.Valid {
			t.Error("finished_at not set")
		}
	})

	t.Run("list returns newest first with a limit", func(t *testing.T) {
		t.Parallel()
		db := testutil.NewTestDatabase(t)

		for _, name := range []string{"first", "second", "third"} {
			if _, err := db.CreateOperation(name, "{}"); err != nil {
				t.Fatal(err)
			}
		}

		ops, err := db.ListOperations(2)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 2 {
			t.Fatalf("got %d operations, want 2", len(ops))
		}
		if ops[0].Operation != "third" || ops[1].Operation != "second" {
			t.Errorf("operations = [%s %s], want [third second]", ops[0].Operation, ops[1].Operation)
		}
	})
}

func TestCheckMigrations(t *testing.T) {
	t.Parallel()

	db, err := database.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.CheckMigrations(); err == nil {
		t.Fatal("CheckMigrations() on an unmigrated database succeeded")
	}
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := db.CheckMigrations(); err != nil {
		t.Fatalf("CheckMigrations() after MigrateUp error = %v", err)
	}
}
