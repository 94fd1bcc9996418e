package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore implements Store with one JSON document per patient. Only the
// latest version is kept on disk.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

type fileEnvelope struct {
	Version   int             `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) pathFor(patient string) (string, error) {
	if err := ValidatePatient(patient); err != nil {
		return "", err
	}
	return filepath.Join(fs.dir, patient+".json"), nil
}

func (fs *FileStore) read(path string) (*fileEnvelope, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var env fileEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &env, nil
}

// LoadSnapshot returns the stored snapshot data for patient.
func (fs *FileStore) LoadSnapshot(_ context.Context, patient string) ([]byte, error) {
	path, err := fs.pathFor(patient)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	env, err := fs.read(path)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// SaveSnapshot replaces the patient's document atomically via a temporary
// file and rename.
func (fs *FileStore) SaveSnapshot(_ context.Context, patient string, data []byte) (*SnapshotRecord, error) {
	path, err := fs.pathFor(patient)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("save %s: snapshot is not valid JSON", patient)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	version := 1
	if prev, err := fs.read(path); err == nil {
		version = prev.Version + 1
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	env := fileEnvelope{Version: version, UpdatedAt: time.Now().UTC(), Data: data}
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("atomic rename %s: %w", path, err)
	}

	return &SnapshotRecord{
		ID:            patient,
		Patient:       patient,
		Version:       version,
		SchemaVersion: schemaVersionOf(data),
		Size:          len(data),
		CreatedAt:     env.UpdatedAt,
	}, nil
}

// Patients lists every patient with a stored document.
func (fs *FileStore) Patients(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if ValidatePatient(id) == nil {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (fs *FileStore) Close() error { return nil }
