package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ExportAll returns every stored snapshot version with its data, optionally
// filtered by patient, oldest version first.
func (s *SQLiteStore) ExportAll(ctx context.Context, patient string) ([]SnapshotRecord, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if patient != "" {
		where = append(where, "patient = ?")
		args = append(args, patient)
	}

	query := `SELECT id, patient, version, supersedes, schema_version, size, created_at, data
	          FROM snapshots WHERE ` + strings.Join(where, " AND ") + ` ORDER BY patient, version`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows, true)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Import stores exported snapshots under their original IDs, in export order.
// Records whose ID is already present are skipped, so importing the same
// export twice is a no-op. A record keeps its version number unless the
// patient already has that version, in which case it becomes the newest.
func (s *SQLiteStore) Import(ctx context.Context, records []SnapshotRecord) (int, error) {
	imported := 0
	for _, r := range records {
		if len(r.Data) == 0 {
			return imported, fmt.Errorf("import %s v%d: empty data", r.Patient, r.Version)
		}
		if err := ValidatePatient(r.Patient); err != nil {
			return imported, err
		}
		ok, err := s.importRecord(ctx, r)
		if err != nil {
			return imported, fmt.Errorf("import %s v%d: %w", r.Patient, r.Version, err)
		}
		if ok {
			imported++
		}
	}
	return imported, nil
}

func (s *SQLiteStore) importRecord(ctx context.Context, r SnapshotRecord) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	id := r.ID
	if id == "" {
		id = s.newID()
	}
	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshots WHERE id = ?`, id).Scan(&exists); err != nil {
		return false, err
	}
	if exists > 0 {
		return false, nil
	}

	version := r.Version
	var taken int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshots WHERE patient = ? AND version = ?`,
		r.Patient, version).Scan(&taken); err != nil {
		return false, err
	}
	if version < 1 || taken > 0 {
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE patient = ?`,
			r.Patient).Scan(&version); err != nil {
			return false, err
		}
	}

	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var supersedes *string
	if r.Supersedes != "" {
		supersedes = &r.Supersedes
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, patient, version, supersedes, schema_version, data, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.Patient, version, supersedes, schemaVersionOf(r.Data), string(r.Data), len(r.Data),
		created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	return true, tx.Commit()
}
