package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rcliao/caremem/internal/chunker"
)

// SearchParams holds parameters for searching transcripts.
type SearchParams struct {
	Patient string
	Query   string
	Limit   int
}

// SearchResult is one matching transcript chunk.
type SearchResult struct {
	TranscriptID string    `json:"transcript_id"`
	Patient      string    `json:"patient"`
	SessionID    string    `json:"session_id"`
	RecordedAt   time.Time `json:"recorded_at"`
	Text         string    `json:"text"`
	StartLine    int       `json:"start_line"`
	EndLine      int       `json:"end_line"`
	Rank         float64   `json:"rank"`
}

// ArchiveTranscript stores a session transcript and indexes its chunks.
func (s *SQLiteStore) ArchiveTranscript(ctx context.Context, patient, sessionID string, recordedAt time.Time, text string) error {
	if err := ValidatePatient(patient); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	id := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transcripts (id, patient, session_id, recorded_at, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, patient, sessionID, recordedAt.UTC().Format(time.RFC3339),
		text, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}

	for i, c := range chunker.Chunk(text, chunker.DefaultOptions()) {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, transcript_id, seq, text, start_line, end_line)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.newID(), id, i, c.Text, c.StartLine, c.EndLine)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	return tx.Commit()
}

// SearchTranscripts finds transcript chunks matching every word of the query,
// best matches first.
func (s *SQLiteStore) SearchTranscripts(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	match := ftsQuery(p.Query)
	if match == "" {
		return nil, nil
	}

	where := []string{"chunks_fts MATCH ?"}
	args := []interface{}{match}
	if p.Patient != "" {
		where = append(where, "t.patient = ?")
		args = append(args, p.Patient)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT t.id, t.patient, t.session_id, t.recorded_at, c.text, c.start_line, c.end_line, bm25(chunks_fts)
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN transcripts t ON t.id = c.transcript_id
		WHERE %s
		ORDER BY bm25(chunks_fts), t.recorded_at DESC
		LIMIT ?`, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search transcripts: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var recordedAt string
		if err := rows.Scan(&r.TranscriptID, &r.Patient, &r.SessionID, &recordedAt,
			&r.Text, &r.StartLine, &r.EndLine, &r.Rank); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

// ftsQuery quotes each word so user input never reaches the FTS5 query
// syntax. Words are implicitly ANDed.
func ftsQuery(q string) string {
	words := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, `"`+w+`"`)
	}
	return strings.Join(quoted, " ")
}
