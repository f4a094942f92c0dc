package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
	"github.com/prudhvi1709/hypoforge/internal/model/dataset"
	"github.com/prudhvi1709/hypoforge/internal/service/session"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.NewStore(zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{Columns: []dataset.Column{
		{Name: "x", Kind: dataset.KindNumeric, Values: []any{1.0, 2.0, 3.0}},
		{Name: "group", Kind: dataset.KindTextual, Values: []any{"a", "a", "b"}},
	}}
}

func TestCreateAndLoad(t *testing.T) {
	store := newStore(t)

	sess, err := store.Create(testDataset(), "test.csv")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected non-empty session id")
	}
	if sess.RowCount != 3 || sess.ColumnCount != 2 {
		t.Fatalf("unexpected counts: %d rows %d columns", sess.RowCount, sess.ColumnCount)
	}
	if _, err := os.Stat(sess.Path); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}

	ds, err := store.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if ds.RowCount() != 3 {
		t.Fatalf("unexpected loaded row count: %d", ds.RowCount())
	}
}

func TestLoadUnknownSession(t *testing.T) {
	store := newStore(t)

	_, err := store.Load("missing")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestConcurrentCreatesAreUnique(t *testing.T) {
	store := newStore(t)

	const n = 32
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := store.Create(testDataset(), "test.csv")
			if err != nil {
				t.Errorf("Create err: %v", err)
				return
			}
			ids <- sess.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	paths := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate session id %s", id)
		}
		seen[id] = true

		sess, err := store.Get(id)
		if err != nil {
			t.Fatalf("Get err: %v", err)
		}
		if paths[sess.Path] {
			t.Fatalf("duplicate snapshot path %s", sess.Path)
		}
		paths[sess.Path] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d sessions, got %d", n, len(seen))
	}
}

func TestDeleteRemovesEverything(t *testing.T) {
	store := newStore(t)

	sess, err := store.Create(testDataset(), "test.csv")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if err := store.Delete(sess.ID); err != nil {
		t.Fatalf("Delete err: %v", err)
	}

	if _, err := store.Load(sess.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	if _, err := os.Stat(sess.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("snapshot should be gone, stat err: %v", err)
	}

	if err := store.Delete(sess.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("second delete should be NotFound, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	store := newStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.Create(testDataset(), "test.csv"); err != nil {
			t.Fatalf("Create err: %v", err)
		}
	}

	if removed := store.Sweep(24 * time.Hour); removed != 0 {
		t.Fatalf("sweep with generous age removed %d sessions", removed)
	}
	if removed := store.Sweep(0); removed != 3 {
		t.Fatalf("sweep(0) removed %d sessions, want 3", removed)
	}
	if removed := store.Sweep(0); removed != 0 {
		t.Fatalf("second sweep removed %d sessions, want 0", removed)
	}
}

func TestSweepKeepsSessionWhenUnlinkFails(t *testing.T) {
	store := newStore(t)

	sess, err := store.Create(testDataset(), "test.csv")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	// Replace the snapshot with a non-empty directory so unlink fails.
	if err := os.Remove(sess.Path); err != nil {
		t.Fatalf("remove snapshot: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(sess.Path, "child"), 0o755); err != nil {
		t.Fatalf("plant directory: %v", err)
	}

	if removed := store.Sweep(0); removed != 0 {
		t.Fatalf("sweep counted %d removals despite unlink failure", removed)
	}

	// The session stays registered so a later sweep can retry it.
	if _, err := store.Get(sess.ID); err != nil {
		t.Fatalf("session should survive a failed unlink, Get err: %v", err)
	}

	if err := os.RemoveAll(sess.Path); err != nil {
		t.Fatalf("clear directory: %v", err)
	}
	if removed := store.Sweep(0); removed != 1 {
		t.Fatalf("retry sweep removed %d sessions, want 1", removed)
	}
}
