package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.SaveSnapshot(ctx, "ann", []byte(`{"schema_version":1,"facts":["a"]}`))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.Version != 1 {
		t.Errorf("expected version 1, got %d", rec.Version)
	}
	if rec.ID == "" {
		t.Error("expected non-empty ID")
	}
	if rec.SchemaVersion != 1 {
		t.Errorf("expected schema version 1, got %d", rec.SchemaVersion)
	}

	got, err := s.LoadSnapshot(ctx, "ann")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"schema_version":1,"facts":["a"]}` {
		t.Errorf("unexpected data %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadSnapshot(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.SaveSnapshot(ctx, "ann", []byte(`{"v":1}`))
	r2, _ := s.SaveSnapshot(ctx, "ann", []byte(`{"v":2}`))

	if r2.Version != 2 {
		t.Errorf("expected version 2, got %d", r2.Version)
	}
	if r2.Supersedes == "" {
		t.Error("expected supersedes to be set")
	}

	got, _ := s.LoadSnapshot(ctx, "ann")
	if string(got) != `{"v":2}` {
		t.Errorf("expected latest version, got %q", got)
	}

	hist, err := s.History(ctx, "ann")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(hist))
	}
	if hist[0].Version != 2 || hist[1].Version != 1 {
		t.Errorf("expected newest first, got v%d, v%d", hist[0].Version, hist[1].Version)
	}
	if hist[0].Data != nil {
		t.Error("history should not carry data")
	}

	v1, err := s.SnapshotVersion(ctx, "ann", 1)
	if err != nil {
		t.Fatalf("version 1: %v", err)
	}
	if string(v1.Data) != `{"v":1}` {
		t.Errorf("expected v1 data, got %q", v1.Data)
	}
	if _, err := s.SnapshotVersion(ctx, "ann", 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing version, got %v", err)
	}
}

func TestPatientsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.SaveSnapshot(ctx, "ann", []byte(`{"who":"ann"}`))
	s.SaveSnapshot(ctx, "bob", []byte(`{"who":"bob"}`))
	s.SaveSnapshot(ctx, "ann", []byte(`{"who":"ann2"}`))

	bob, _ := s.LoadSnapshot(ctx, "bob")
	if string(bob) != `{"who":"bob"}` {
		t.Errorf("unexpected bob snapshot %q", bob)
	}
	patients, err := s.Patients(ctx)
	if err != nil {
		t.Fatalf("patients: %v", err)
	}
	if len(patients) != 2 || patients[0] != "ann" || patients[1] != "bob" {
		t.Errorf("expected [ann bob], got %v", patients)
	}
}

func TestInvalidPatient(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"", "../etc", "a b", ".hidden"} {
		if _, err := s.SaveSnapshot(context.Background(), id, []byte(`{}`)); !errors.Is(err, ErrInvalidPatient) {
			t.Errorf("%q: expected ErrInvalidPatient, got %v", id, err)
		}
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		s.SaveSnapshot(ctx, "ann", []byte(`{}`))
	}
	s.SaveSnapshot(ctx, "bob", []byte(`{}`))

	n, err := s.Prune(ctx, "ann", 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 pruned, got %d", n)
	}
	hist, _ := s.History(ctx, "ann")
	if len(hist) != 2 || hist[0].Version != 5 || hist[1].Version != 4 {
		t.Errorf("expected versions 5 and 4 to remain, got %+v", hist)
	}
	bob, _ := s.History(ctx, "bob")
	if len(bob) != 1 {
		t.Errorf("prune must not touch other patients, got %d", len(bob))
	}

	rec, _ := s.SaveSnapshot(ctx, "ann", []byte(`{}`))
	if rec.Version != 6 {
		t.Errorf("expected version numbering to continue at 6, got %d", rec.Version)
	}

	if _, err := s.Prune(ctx, "ann", 0); err == nil {
		t.Error("expected error for keep=0")
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "deep", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected db file to exist: %v", err)
	}
	if s.Path() != dbPath {
		t.Errorf("expected path %q, got %q", dbPath, s.Path())
	}
}
