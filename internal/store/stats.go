package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath           string         `json:"db_path"`
	DBSizeBytes      int64          `json:"db_size_bytes"`
	TotalSnapshots   int            `json:"total_snapshots"`
	TotalTranscripts int            `json:"total_transcripts"`
	TotalChunks      int            `json:"total_chunks"`
	Patients         []PatientStats `json:"patients"`
}

// PatientStats holds per-patient counts.
type PatientStats struct {
	Patient       string `json:"patient"`
	Versions      int    `json:"versions"`
	LatestVersion int    `json:"latest_version"`
	Transcripts   int    `json:"transcripts"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&st.TotalSnapshots)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&st.TotalTranscripts)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.TotalChunks)

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.patient, COUNT(*) AS cnt, MAX(s.version),
		       (SELECT COUNT(*) FROM transcripts t WHERE t.patient = s.patient)
		FROM snapshots s
		GROUP BY s.patient ORDER BY s.patient`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var p PatientStats
		if err := rows.Scan(&p.Patient, &p.Versions, &p.LatestVersion, &p.Transcripts); err != nil {
			return st, err
		}
		st.Patients = append(st.Patients, p)
	}
	return st, rows.Err()
}
