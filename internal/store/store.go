// Package store persists patient memory snapshots and session transcripts.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned when a patient has no stored snapshot.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidPatient is returned for patient IDs that are not safe names.
	ErrInvalidPatient = errors.New("store: invalid patient id")
)

var patientRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidatePatient checks that id can be used as a namespace and a file name.
func ValidatePatient(id string) error {
	if !patientRe.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidPatient, id)
	}
	return nil
}

// SnapshotRecord is one stored version of a patient's memory snapshot. Each
// save creates a new version superseding the previous one.
type SnapshotRecord struct {
	ID            string          `json:"id"`
	Patient       string          `json:"patient"`
	Version       int             `json:"version"`
	Supersedes    string          `json:"supersedes,omitempty"`
	SchemaVersion int             `json:"schema_version"`
	Size          int             `json:"size"`
	CreatedAt     time.Time       `json:"created_at"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Store defines snapshot persistence.
type Store interface {
	// LoadSnapshot returns the latest snapshot data, or ErrNotFound.
	LoadSnapshot(ctx context.Context, patient string) ([]byte, error)

	// SaveSnapshot stores data as the patient's newest version.
	SaveSnapshot(ctx context.Context, patient string, data []byte) (*SnapshotRecord, error)

	// Patients lists every patient with a stored snapshot.
	Patients(ctx context.Context) ([]string, error)

	// Close closes the store.
	Close() error
}

// TranscriptArchive is implemented by stores that keep searchable transcripts.
type TranscriptArchive interface {
	ArchiveTranscript(ctx context.Context, patient, sessionID string, recordedAt time.Time, text string) error
	SearchTranscripts(ctx context.Context, p SearchParams) ([]SearchResult, error)
}

// schemaVersionOf reads the schema_version field without decoding the rest.
func schemaVersionOf(data []byte) int {
	var head struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0
	}
	return head.SchemaVersion
}
