package auditlog

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestInsertAndRecent(t *testing.T) {
	repo := openTestRepo(t)
	now := time.Now().UTC()
	entries := []Entry{
		{ID: "a", Timestamp: now.Add(-time.Minute), Method: "POST", Path: "/workitems", Status: 201, Duration: 3 * time.Millisecond, Subscriber: ""},
		{ID: "b", Timestamp: now, Method: "GET", Path: "/workitems/1.2.3", Status: 200, Duration: time.Millisecond, Subscriber: "AE1"},
	}
	n, err := repo.InsertBatch(entries)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	got, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].ID != "b" {
		t.Fatalf("expected newest first, got %s", got[0].ID)
	}
	if got[0].Status != 200 || got[0].Subscriber != "AE1" {
		t.Fatalf("row roundtrip: %+v", got[0])
	}
}

func TestPrune(t *testing.T) {
	repo := openTestRepo(t)
	old := Entry{ID: "old", Timestamp: time.Now().Add(-48 * time.Hour), Method: "GET", Path: "/healthz", Status: 200}
	fresh := Entry{ID: "new", Timestamp: time.Now(), Method: "GET", Path: "/healthz", Status: 200}
	if _, err := repo.InsertBatch([]Entry{old, fresh}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	removed, err := repo.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned, got %d", removed)
	}
	got, _ := repo.Recent(10)
	if len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("unexpected survivors: %+v", got)
	}
}

func TestServiceFlushesOnStop(t *testing.T) {
	repo := openTestRepo(t)
	svc := NewService(ServiceConfig{Repo: repo, FlushInterval: time.Hour})
	svc.Start()
	for i := 0; i < 5; i++ {
		svc.Emit(Entry{Timestamp: time.Now(), Method: "GET", Path: "/workitems", Status: 200})
	}
	svc.Stop()

	got, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 flushed entries, got %d", len(got))
	}
	for _, e := range got {
		if e.ID == "" {
			t.Fatal("emit did not assign an ID")
		}
	}
}
