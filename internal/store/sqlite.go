package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store and TranscriptArchive using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id             TEXT PRIMARY KEY,
		patient        TEXT NOT NULL,
		version        INTEGER NOT NULL,
		supersedes     TEXT,
		schema_version INTEGER NOT NULL DEFAULT 0,
		data           TEXT NOT NULL,
		size           INTEGER NOT NULL,
		created_at     TEXT NOT NULL,
		UNIQUE (patient, version)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_patient ON snapshots(patient, version DESC);

	CREATE TABLE IF NOT EXISTS transcripts (
		id          TEXT PRIMARY KEY,
		patient     TEXT NOT NULL,
		session_id  TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		text        TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_patient ON transcripts(patient, recorded_at);

	CREATE TABLE IF NOT EXISTS chunks (
		id            TEXT PRIMARY KEY,
		transcript_id TEXT NOT NULL REFERENCES transcripts(id),
		seq           INTEGER NOT NULL,
		text          TEXT NOT NULL,
		start_line    INTEGER,
		end_line      INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_transcript ON chunks(transcript_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		text,
		content=chunks,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers for automatic sync
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, t := range triggers {
		if _, err := s.db.Exec(t); err != nil {
			return fmt.Errorf("create fts trigger: %w", err)
		}
	}
	return nil
}

// SaveSnapshot stores data as a new version for patient.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, patient string, data []byte) (*SnapshotRecord, error) {
	if err := ValidatePatient(patient); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	id := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Check for existing latest version
	var prevID string
	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT id, version FROM snapshots WHERE patient = ?
		 ORDER BY version DESC LIMIT 1`, patient).Scan(&prevID, &prevVersion)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	rec := &SnapshotRecord{
		ID:            id,
		Patient:       patient,
		Version:       1,
		SchemaVersion: schemaVersionOf(data),
		Size:          len(data),
		CreatedAt:     now,
	}
	var supersedes *string
	if err == nil {
		rec.Version = prevVersion + 1
		rec.Supersedes = prevID
		supersedes = &prevID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, patient, version, supersedes, schema_version, data, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, patient, rec.Version, supersedes, rec.SchemaVersion, string(data), rec.Size,
		now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

// LoadSnapshot returns the latest snapshot data for patient.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, patient string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE patient = ? ORDER BY version DESC LIMIT 1`,
		patient).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return []byte(data), nil
}

// SnapshotVersion returns one stored version including its data.
func (s *SQLiteStore) SnapshotVersion(ctx context.Context, patient string, version int) (*SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, patient, version, supersedes, schema_version, size, created_at, data
		 FROM snapshots WHERE patient = ? AND version = ?`, patient, version)
	rec, err := scanSnapshot(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s v%d: %w", patient, version, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// History lists every stored version for patient, newest first, without data.
func (s *SQLiteStore) History(ctx context.Context, patient string) ([]SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, patient, version, supersedes, schema_version, size, created_at
		 FROM snapshots WHERE patient = ? ORDER BY version DESC`, patient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows, false)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes all but the newest keep versions for patient and returns how
// many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, patient string, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("prune: keep must be at least 1, got %d", keep)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE patient = ? AND version <= (
			SELECT COALESCE(MAX(version), 0) - ? FROM snapshots WHERE patient = ?
		)`, patient, keep, patient)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Patients lists every patient with a stored snapshot, sorted by name.
func (s *SQLiteStore) Patients(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT patient FROM snapshots ORDER BY patient`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner, withData bool) (SnapshotRecord, error) {
	var rec SnapshotRecord
	var supersedes sql.NullString
	var createdAt, data string

	dest := []interface{}{
		&rec.ID, &rec.Patient, &rec.Version, &supersedes, &rec.SchemaVersion, &rec.Size, &createdAt,
	}
	if withData {
		dest = append(dest, &data)
	}
	if err := row.Scan(dest...); err != nil {
		return rec, err
	}

	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if supersedes.Valid {
		rec.Supersedes = supersedes.String
	}
	if withData {
		rec.Data = []byte(data)
	}
	return rec, nil
}
