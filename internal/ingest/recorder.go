// Package ingest records one completed conversation into a patient's memory.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/rcliao/caremem/internal/memory"
	"github.com/rcliao/caremem/internal/model"
	"github.com/rcliao/caremem/internal/normalize"
)

// ErrEmptyExtraction is returned when an extraction carries nothing to record.
var ErrEmptyExtraction = errors.New("ingest: empty extraction")

// Extraction is the structured summary produced for one conversation.
type Extraction struct {
	Date          string            `json:"date,omitempty"`
	Day           *int              `json:"day,omitempty"`
	Transcript    string            `json:"transcript,omitempty"`
	KeyPoints     []string          `json:"key_points,omitempty"`
	MedicalValues map[string]string `json:"medical_values,omitempty"`
	Facts         []string          `json:"facts,omitempty"`
	Concerns      []string          `json:"concerns,omitempty"`
	Patterns      []string          `json:"patterns,omitempty"`
	NextSteps     []string          `json:"next_steps,omitempty"`
	Questions     []string          `json:"questions,omitempty"`
}

// Decode reads one Extraction as JSON.
func Decode(r io.Reader) (Extraction, error) {
	var ex Extraction
	if err := json.NewDecoder(r).Decode(&ex); err != nil {
		return Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}
	return ex, nil
}

// Archive stores raw transcripts for later search.
type Archive interface {
	ArchiveTranscript(ctx context.Context, sessionID string, recordedAt time.Time, text string) error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithArchive stores every recorded transcript in a.
func WithArchive(a Archive) Option {
	return func(r *Recorder) { r.archive = a }
}

// WithClock sets the time used for undated extractions.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithLogger sets the logger for archive failures.
func WithLogger(l *log.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// Recorder applies extractions to a memory store.
type Recorder struct {
	mem     *memory.Store
	archive Archive
	now     func() time.Time
	logger  *log.Logger
	entropy *rand.Rand
}

// NewRecorder returns a Recorder writing into mem.
func NewRecorder(mem *memory.Store, opts ...Option) *Recorder {
	r := &Recorder{
		mem:     mem,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  log.Default(),
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Recorder) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), r.entropy).String()
}

// Record stores ex as a new session and feeds its values, facts, patterns,
// concerns and questions into the memory. It returns the stored session.
func (r *Recorder) Record(ctx context.Context, ex Extraction) (model.SessionMemory, error) {
	keyPoints := clean(ex.KeyPoints)
	facts := clean(ex.Facts)
	concerns := clean(ex.Concerns)
	patterns := clean(ex.Patterns)
	nextSteps := clean(ex.NextSteps)
	questions := clean(ex.Questions)
	values := canonicalValues(ex.MedicalValues)
	transcript := strings.TrimSpace(ex.Transcript)

	if len(keyPoints) == 0 && len(values) == 0 && len(facts) == 0 &&
		len(concerns) == 0 && transcript == "" {
		return model.SessionMemory{}, ErrEmptyExtraction
	}

	at, err := r.sessionTime(ex.Date)
	if err != nil {
		return model.SessionMemory{}, err
	}

	sess := model.SessionMemory{
		ID:             r.newID(at),
		Date:           at,
		KeyPoints:      keyPoints,
		MedicalValues:  values,
		Concerns:       normalize.NormalizeAndDedupe(concerns),
		NextSteps:      nextSteps,
		QuestionsAsked: questions,
	}
	if ex.Day != nil && *ex.Day > 0 {
		d := *ex.Day
		sess.DayNumber = &d
	} else if d, ok := r.mem.Profile().DayNumber(at); ok {
		sess.DayNumber = &d
	}
	if sess.IsEmpty() {
		// Transcript-only sessions still mark that a conversation happened.
		sess.KeyPoints = []string{"Conversation recorded without a structured summary"}
	}
	r.mem.AddSession(ctx, sess)

	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		raw := values[name]
		v, unit, ok := model.ParseMeasurement(raw)
		if !ok {
			continue
		}
		r.mem.TrackReading(ctx, name, model.VitalReading{Value: v, Unit: unit, Raw: raw, RecordedAt: at})
	}

	for _, f := range facts {
		r.mem.AddFact(ctx, f)
	}
	for _, p := range patterns {
		r.mem.AddPattern(ctx, p)
	}
	r.mem.RecordConcerns(ctx, concerns)
	for _, q := range questions {
		r.mem.RecordQuestion(ctx, q)
	}

	if transcript != "" && r.archive != nil {
		if err := r.archive.ArchiveTranscript(ctx, sess.ID, at, transcript); err != nil {
			r.logger.Warn("archive transcript", "session", sess.ID, "error", err)
		}
	}
	return sess, nil
}

func (r *Recorder) sessionTime(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return r.now(), nil
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse session date %q: %w", date, err)
	}
	return t, nil
}

func canonicalValues(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.TrimSpace(in[k])
		name := normalize.Normalize(k)
		if name == "" || v == "" {
			continue
		}
		if _, dup := out[name]; dup {
			continue
		}
		out[name] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clean(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
