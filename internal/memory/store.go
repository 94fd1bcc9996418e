// Package memory holds a patient's longitudinal memory: profile, sessions,
// facts, vitals, patterns, concerns, preferences and questions. Every
// mutation is persisted through a Persister before the call returns.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/rcliao/caremem/internal/model"
	"github.com/rcliao/caremem/internal/normalize"
)

// ErrNoSnapshot is returned by a Persister that has nothing saved yet.
var ErrNoSnapshot = errors.New("memory: no snapshot")

// Persister loads and saves the encoded snapshot.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Limits caps the bounded collections. A zero or negative field means
// unbounded.
type Limits struct {
	MaxSessions         int `yaml:"max_sessions" json:"max_sessions"`
	MaxFacts            int `yaml:"max_facts" json:"max_facts"`
	MaxReadingsPerVital int `yaml:"max_readings_per_vital" json:"max_readings_per_vital"`
	MaxQuestions        int `yaml:"max_questions" json:"max_questions"`
}

// DefaultLimits are the caps used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxSessions:         100,
		MaxFacts:            200,
		MaxReadingsPerVital: 100,
		MaxQuestions:        50,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithLimits overrides DefaultLimits.
func WithLimits(l Limits) Option {
	return func(s *Store) { s.limits = l }
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the time source for reading and question timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the in-memory entity model of one patient. It has a single
// writer; the mutex only makes concurrent reads safe.
type Store struct {
	mu      sync.RWMutex
	snap    model.Snapshot
	p       Persister
	limits  Limits
	logger  *log.Logger
	now     func() time.Time
	lastErr error
}

// New returns an empty Store. p may be nil, in which case nothing is saved.
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		snap:   model.NewSnapshot(),
		p:      p,
		limits: DefaultLimits(),
		logger: log.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open returns a Store initialized from the persisted snapshot. A missing or
// unreadable snapshot yields an empty store; only the failure is logged.
func Open(ctx context.Context, p Persister, opts ...Option) *Store {
	s := New(p, opts...)
	if p == nil {
		return s
	}
	data, err := p.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			s.logger.Warn("load memory snapshot", "error", err)
		}
		return s
	}
	snap, err := Decode(data)
	if err != nil {
		s.logger.Warn("discarding memory snapshot", "error", err)
		return s
	}
	s.snap = snap
	return s
}

// Decode parses an encoded snapshot and rejects unknown schema versions.
func Decode(data []byte) (model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.SchemaVersion != model.SchemaVersion {
		return model.Snapshot{}, fmt.Errorf("unsupported snapshot schema version %d", snap.SchemaVersion)
	}
	return snap, nil
}

// Encode serializes a snapshot in the persisted format.
func Encode(snap model.Snapshot) ([]byte, error) {
	snap.SchemaVersion = model.SchemaVersion
	return json.Marshal(snap)
}

// LastPersistError returns the error of the most recent save, or nil.
func (s *Store) LastPersistError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// persist must be called with mu held for writing.
func (s *Store) persist(ctx context.Context) {
	s.snap.UpdatedAt = s.now()
	if s.p == nil {
		return
	}
	data, err := Encode(s.snap)
	if err == nil {
		err = s.p.Save(ctx, data)
	}
	s.lastErr = err
	if err != nil {
		s.logger.Warn("persist memory snapshot", "error", err)
	}
}

// AddSession appends a session summary, pinning the first one ever added as
// the baseline and evicting the oldest once the session cap is exceeded.
func (s *Store) AddSession(ctx context.Context, sess model.SessionMemory) {
	if sess.IsEmpty() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess = sess.Clone()
	if s.snap.Baseline == nil {
		b := sess.Clone()
		s.snap.Baseline = &b
	}
	s.snap.Sessions = append(s.snap.Sessions, sess)
	if n := overflow(len(s.snap.Sessions), s.limits.MaxSessions); n > 0 {
		s.snap.Sessions = append([]model.SessionMemory(nil), s.snap.Sessions[n:]...)
		s.snap.SessionsDropped += n
		s.logger.Debug("evicted sessions", "count", n)
	}
	s.persist(ctx)
}

// AddFact stores a trimmed fact unless it is already known, evicting the
// oldest facts past the cap.
func (s *Store) AddFact(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if contains(s.snap.Facts, text) {
		return
	}
	s.snap.Facts = append(s.snap.Facts, text)
	if n := overflow(len(s.snap.Facts), s.limits.MaxFacts); n > 0 {
		s.snap.Facts = append([]string(nil), s.snap.Facts[n:]...)
		s.logger.Debug("evicted facts", "count", n)
	}
	s.persist(ctx)
}

// AddPattern stores a trimmed observed pattern unless it is already known.
func (s *Store) AddPattern(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if contains(s.snap.Patterns, text) {
		return
	}
	s.snap.Patterns = append(s.snap.Patterns, text)
	s.persist(ctx)
}

// TrackVital appends a reading stamped with the current time.
func (s *Store) TrackVital(ctx context.Context, name string, value float64, unit string) {
	s.TrackReading(ctx, name, model.VitalReading{Value: value, Unit: unit})
}

// TrackReading appends r to the series for name, canonicalized. The first
// reading of a series is pinned as its baseline. Non-finite values are ignored.
func (s *Store) TrackReading(ctx context.Context, name string, r model.VitalReading) {
	key := normalize.Normalize(name)
	if key == "" || math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return
	}
	r.Unit = strings.TrimSpace(r.Unit)
	r.Raw = strings.TrimSpace(r.Raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.RecordedAt.IsZero() {
		r.RecordedAt = s.now()
	}
	if s.snap.Vitals == nil {
		s.snap.Vitals = make(map[string]model.VitalSeries)
	}
	series := s.snap.Vitals[key]
	if series.Baseline == nil {
		b := r
		series.Baseline = &b
	}
	series.Readings = append(series.Readings, r)
	if n := overflow(len(series.Readings), s.limits.MaxReadingsPerVital); n > 0 {
		series.Readings = append([]model.VitalReading(nil), series.Readings[n:]...)
		series.Dropped += n
	}
	s.snap.Vitals[key] = series
	s.persist(ctx)
}

// RecordConcerns canonicalizes one session's concerns and appends each
// distinct one to the aggregate list. The aggregate keeps repeats across
// sessions so recurrence can be counted.
func (s *Store) RecordConcerns(ctx context.Context, concerns []string) {
	batch := normalize.NormalizeAndDedupe(concerns)
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Concerns = append(s.snap.Concerns, batch...)
	s.persist(ctx)
}

// RecordQuestion appends to the question log, evicting the oldest past the cap.
func (s *Store) RecordQuestion(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Questions = append(s.snap.Questions, model.Question{Text: text, AskedAt: s.now()})
	if n := overflow(len(s.snap.Questions), s.limits.MaxQuestions); n > 0 {
		s.snap.Questions = append([]model.Question(nil), s.snap.Questions[n:]...)
	}
	s.persist(ctx)
}

// SetProfile replaces the patient profile, assigning an ID when it has none.
func (s *Store) SetProfile(ctx context.Context, p model.PatientProfile) {
	if p.IsZero() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p = p.Clone()
	if p.ID == "" {
		p.ID = s.snap.Profile.ID
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.snap.Profile = p
	s.persist(ctx)
}

// SetPreference stores a caregiver preference. An empty value removes it.
func (s *Store) SetPreference(ctx context.Context, key, value string) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.snap.Preferences[key]; (ok && cur == value) || (!ok && value == "") {
		return
	}
	if value == "" {
		delete(s.snap.Preferences, key)
	} else {
		if s.snap.Preferences == nil {
			s.snap.Preferences = make(map[string]string)
		}
		s.snap.Preferences[key] = value
	}
	s.persist(ctx)
}

// Reset clears everything, identity included, and persists the empty state.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = model.NewSnapshot()
	s.persist(ctx)
}

func overflow(n, limit int) int {
	if limit <= 0 || n <= limit {
		return 0
	}
	return n - limit
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
