package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/caremem/internal/memory"
)

// Slot binds a Store to one patient. It satisfies memory.Persister and, when
// the store keeps transcripts, ingest.Archive.
type Slot struct {
	Store   Store
	Patient string
}

// Load returns the patient's latest snapshot, or memory.ErrNoSnapshot.
func (s Slot) Load(ctx context.Context) ([]byte, error) {
	data, err := s.Store.LoadSnapshot(ctx, s.Patient)
	if errors.Is(err, ErrNotFound) {
		return nil, memory.ErrNoSnapshot
	}
	return data, err
}

// Save stores data as the patient's newest snapshot.
func (s Slot) Save(ctx context.Context, data []byte) error {
	_, err := s.Store.SaveSnapshot(ctx, s.Patient, data)
	return err
}

// ArchiveTranscript stores text when the underlying store keeps transcripts
// and is a no-op otherwise.
func (s Slot) ArchiveTranscript(ctx context.Context, sessionID string, recordedAt time.Time, text string) error {
	a, ok := s.Store.(TranscriptArchive)
	if !ok {
		return nil
	}
	return a.ArchiveTranscript(ctx, s.Patient, sessionID, recordedAt, text)
}
