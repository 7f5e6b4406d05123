package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	date := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)

	for i, category := range []string{"equation", "equation", "figure"} {
		id := string(rune('a' + i))
		if err := store.RecordInstance(ctx, "latex", category, id, "paper-"+id, date); err != nil {
			t.Fatalf("RecordInstance: %v", err)
		}
	}
	if err := store.RecordInstance(ctx, "music", "music", "z", "score-z", date); err != nil {
		t.Fatalf("RecordInstance: %v", err)
	}

	counts, err := store.Counts(ctx, "latex")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts["equation"] != 2 || counts["figure"] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if _, present := counts["music"]; present {
		t.Errorf("counts leaked across runners: %v", counts)
	}
}

func TestSeenInstances(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	date := time.Now()

	if err := store.RecordInstance(ctx, "latex", "equation", "a", "paper-1", date); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordInstance(ctx, "latex", "figure", "b", "paper-1", date); err != nil {
		t.Fatal(err)
	}

	names, err := store.SeenInstances(ctx, "latex")
	if err != nil {
		t.Fatalf("SeenInstances: %v", err)
	}
	if len(names) != 1 || names[0] != "paper-1" {
		t.Errorf("names = %v", names)
	}
}

func TestRejectionCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.RecordRejection(ctx, "webpage", "rendering", "nontrivial", "site", "white image"); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.RecordRejection(ctx, "webpage", "file", "repo_shape", "site", ""); err != nil {
		t.Fatal(err)
	}

	counts, err := store.RejectionCounts(ctx, "webpage")
	if err != nil {
		t.Fatalf("RejectionCounts: %v", err)
	}
	if counts["nontrivial"] != 3 || counts["repo_shape"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestReopenKeepsState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")

	store, err := OpenPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordInstance(context.Background(), "latex", "table", "a", "paper-1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	counts, err := reopened.Counts(context.Background(), "latex")
	if err != nil {
		t.Fatal(err)
	}
	if counts["table"] != 1 {
		t.Errorf("counts after reopen = %v", counts)
	}
}
