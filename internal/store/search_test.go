package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSearchTranscripts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	if err := s.ArchiveTranscript(ctx, "ann", "s1", day1, "Nurse: Her creatinine is 1.0 this morning.\nCaregiver: Good."); err != nil {
		t.Fatalf("archive: %v", err)
	}
	s.ArchiveTranscript(ctx, "ann", "s2", day2, "Doctor: We may start dialysis if the creatinine keeps rising.")
	s.ArchiveTranscript(ctx, "bob", "s3", day2, "Nurse: Creatinine stable for Bob.")

	results, err := s.SearchTranscripts(ctx, SearchParams{Patient: "ann", Query: "creatinine"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results for ann, got %d", len(results))
	}
	for _, r := range results {
		if r.Patient != "ann" {
			t.Errorf("unexpected patient %q", r.Patient)
		}
	}

	results, _ = s.SearchTranscripts(ctx, SearchParams{Query: "creatinine"})
	if len(results) != 3 {
		t.Errorf("expected 3 results across patients, got %d", len(results))
	}

	results, _ = s.SearchTranscripts(ctx, SearchParams{Patient: "ann", Query: "dialysis creatinine"})
	if len(results) != 1 || results[0].SessionID != "s2" {
		t.Fatalf("expected only s2 to match both words, got %+v", results)
	}
	if !results[0].RecordedAt.Equal(day2) {
		t.Errorf("expected recorded_at %v, got %v", day2, results[0].RecordedAt)
	}
}

func TestSearchQuerySyntaxIsEscaped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.ArchiveTranscript(ctx, "ann", "s1", time.Now(), "Pain is 7/10 tonight.")

	for _, q := range []string{`pain"`, "pain AND", "pain*", "(pain", "NEAR(pain"} {
		if _, err := s.SearchTranscripts(ctx, SearchParams{Query: q}); err != nil {
			t.Errorf("query %q: %v", q, err)
		}
	}
	results, _ := s.SearchTranscripts(ctx, SearchParams{Query: "  ... "})
	if results != nil {
		t.Errorf("expected no results for empty query, got %v", results)
	}
}

func TestArchiveChunksLongTranscripts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	turn := strings.Repeat("We discussed the drain output and the plan for tomorrow. ", 8)
	text := "Nurse: " + turn + "\nCaregiver: " + turn + "\nDoctor: " + turn + "Walking twice today."

	if err := s.ArchiveTranscript(ctx, "ann", "s1", time.Now(), text); err != nil {
		t.Fatalf("archive: %v", err)
	}
	st, _ := s.Stats(ctx)
	if st.TotalChunks < 3 {
		t.Errorf("expected transcript to be chunked, got %d chunks", st.TotalChunks)
	}

	results, _ := s.SearchTranscripts(ctx, SearchParams{Query: "walking"})
	if len(results) != 1 {
		t.Fatalf("expected 1 matching chunk, got %d", len(results))
	}
	if !strings.HasPrefix(results[0].Text, "Doctor:") {
		t.Errorf("expected the doctor's turn, got %q", results[0].Text)
	}
}

func TestArchiveEmptyTranscript(t *testing.T) {
	s := newTestStore(t)
	if err := s.ArchiveTranscript(context.Background(), "ann", "s1", time.Now(), "   "); err != nil {
		t.Fatalf("archive: %v", err)
	}
	st, _ := s.Stats(context.Background())
	if st.TotalTranscripts != 0 {
		t.Errorf("expected blank transcript to be skipped, got %d", st.TotalTranscripts)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.SaveSnapshot(ctx, "ann", []byte(`{}`))
	s.SaveSnapshot(ctx, "ann", []byte(`{}`))
	s.SaveSnapshot(ctx, "bob", []byte(`{}`))
	s.ArchiveTranscript(ctx, "ann", "s1", time.Now(), "Nurse: hello")

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalSnapshots != 3 {
		t.Errorf("expected 3 snapshots, got %d", st.TotalSnapshots)
	}
	if st.TotalTranscripts != 1 || st.TotalChunks != 1 {
		t.Errorf("expected 1 transcript and 1 chunk, got %d/%d", st.TotalTranscripts, st.TotalChunks)
	}
	if len(st.Patients) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(st.Patients))
	}
	ann := st.Patients[0]
	if ann.Patient != "ann" || ann.Versions != 2 || ann.LatestVersion != 2 || ann.Transcripts != 1 {
		t.Errorf("unexpected ann stats %+v", ann)
	}
	if st.DBSizeBytes == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	src.SaveSnapshot(ctx, "ann", []byte(`{"schema_version":1,"v":1}`))
	src.SaveSnapshot(ctx, "ann", []byte(`{"schema_version":1,"v":2}`))
	src.SaveSnapshot(ctx, "bob", []byte(`{"schema_version":1,"v":1}`))

	all, err := src.ExportAll(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	annOnly, _ := src.ExportAll(ctx, "ann")
	if len(annOnly) != 2 || annOnly[0].Version != 1 {
		t.Fatalf("expected ann versions oldest first, got %+v", annOnly)
	}

	dst := newTestStore(t)
	n, err := dst.Import(ctx, all)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 imported, got %d", n)
	}
	got, _ := dst.LoadSnapshot(ctx, "ann")
	if string(got) != `{"schema_version":1,"v":2}` {
		t.Errorf("expected latest ann snapshot after import, got %q", got)
	}

	n, err = dst.Import(ctx, all)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if n != 0 {
		t.Errorf("expected second import to skip every record, got %d", n)
	}
	hist, _ := dst.History(ctx, "ann")
	if len(hist) != 2 {
		t.Fatalf("expected 2 ann versions after importing twice, got %d", len(hist))
	}
	if hist[0].ID != annOnly[1].ID || hist[0].Supersedes != annOnly[0].ID {
		t.Errorf("expected original ids and supersedes to survive import, got %+v", hist[0])
	}

	n, _ = src.Import(ctx, all)
	if n != 0 {
		t.Errorf("expected re-import into the source to skip existing ids, got %d", n)
	}

	src.SaveSnapshot(ctx, "cara", []byte(`{"schema_version":1,"v":1}`))
	cara, _ := src.ExportAll(ctx, "cara")
	dst.SaveSnapshot(ctx, "cara", []byte(`{"schema_version":1,"local":true}`))
	if n, err := dst.Import(ctx, cara); err != nil || n != 1 {
		t.Fatalf("expected conflicting version to import, got n=%d err=%v", n, err)
	}
	rec, err := dst.SnapshotVersion(ctx, "cara", 2)
	if err != nil || rec.ID != cara[0].ID {
		t.Errorf("expected conflicting version to be renumbered to 2, got %+v, %v", rec, err)
	}
}
