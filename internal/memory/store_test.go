package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/caremem/internal/model"
)

type fakePersister struct {
	data    []byte
	saves   int
	saveErr error
	loadErr error
}

func (f *fakePersister) Load(ctx context.Context) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.data == nil {
		return nil, ErrNoSnapshot
	}
	return f.data, nil
}

func (f *fakePersister) Save(ctx context.Context, data []byte) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.data = append([]byte(nil), data...)
	return nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *fakePersister) {
	t.Helper()
	p := &fakePersister{}
	opts = append([]Option{WithLogger(quietLogger()), WithClock(fixedClock())}, opts...)
	return New(p, opts...), p
}

func session(id string, day int, values map[string]string, concerns ...string) model.SessionMemory {
	d := day
	return model.SessionMemory{
		ID:            id,
		Date:          time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		DayNumber:     &d,
		KeyPoints:     []string{"key point " + id},
		MedicalValues: values,
		Concerns:      concerns,
	}
}

func TestAddFactDedupAndCap(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t, WithLimits(Limits{MaxFacts: 3}))

	for i := 1; i <= 5; i++ {
		s.AddFact(ctx, fmt.Sprintf("fact %d", i))
	}
	assert.Equal(t, []string{"fact 3", "fact 4", "fact 5"}, s.Facts())
	assert.Equal(t, 5, p.saves)

	s.AddFact(ctx, "  fact 5  ")
	s.AddFact(ctx, "   ")
	s.AddFact(ctx, "")
	assert.Equal(t, 5, p.saves, "duplicate and blank facts must not persist")
	assert.Len(t, s.Facts(), 3)
}

func TestAddPatternUnbounded(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithLimits(Limits{MaxFacts: 1}))
	for i := 0; i < 10; i++ {
		s.AddPattern(ctx, fmt.Sprintf("pattern %d", i))
	}
	s.AddPattern(ctx, "pattern 0")
	assert.Len(t, s.Patterns(), 10)
}

func TestAddSessionPinsBaselineAndEvicts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithLimits(Limits{MaxSessions: 2}))

	s.AddSession(ctx, session("s1", 1, map[string]string{"creatinine": "1.0"}))
	s.AddSession(ctx, session("s2", 2, nil))
	s.AddSession(ctx, session("s3", 3, nil))

	sessions := s.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)
	assert.Equal(t, "s3", sessions[1].ID)

	base, ok := s.Baseline()
	require.True(t, ok)
	assert.Equal(t, "s1", base.ID)
	assert.Equal(t, "1.0", base.MedicalValues["creatinine"])
	assert.Equal(t, 1, s.Snapshot().SessionsDropped)
}

func TestAddSessionIgnoresEmpty(t *testing.T) {
	s, p := newTestStore(t)
	s.AddSession(context.Background(), model.SessionMemory{ID: "x"})
	assert.Empty(t, s.Sessions())
	assert.Zero(t, p.saves)
}

func TestSessionsAreCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	in := session("s1", 1, map[string]string{"creatinine": "1.0"})
	s.AddSession(ctx, in)

	in.KeyPoints[0] = "mutated by caller"
	out := s.Sessions()
	out[0].MedicalValues["creatinine"] = "9.9"

	again := s.Sessions()
	assert.Equal(t, "key point s1", again[0].KeyPoints[0])
	assert.Equal(t, "1.0", again[0].MedicalValues["creatinine"])
}

func TestTrackVital(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithLimits(Limits{MaxReadingsPerVital: 3}))

	s.TrackVital(ctx, "Creatinine", 1.0, "mg/dL")
	s.TrackVital(ctx, "creatine", 1.2, "mg/dL")
	s.TrackVital(ctx, "Cr", 1.4, "mg/dL")
	s.TrackVital(ctx, "creatinine", 1.5, "mg/dL")
	s.TrackVital(ctx, "creatinine", math.NaN(), "")
	s.TrackVital(ctx, "", 3, "")

	assert.Equal(t, []string{"creatinine"}, s.VitalNames())
	series, ok := s.Vital("creatinine")
	require.True(t, ok)
	assert.Equal(t, []float64{1.2, 1.4, 1.5}, series.Values())
	require.NotNil(t, series.Baseline)
	assert.Equal(t, 1.0, series.Baseline.Value)
	assert.Equal(t, 1, series.Dropped)
	assert.False(t, series.Readings[0].RecordedAt.IsZero())

	a, ok := s.Trend("creatinine")
	require.True(t, ok)
	assert.Equal(t, 50.0, a.Percent)
	assert.Equal(t, "CONCERNING", string(a.Severity))
}

func TestTrackReadingKeepsTimestamp(t *testing.T) {
	at := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t)
	s.TrackReading(context.Background(), "O2", model.VitalReading{Value: 2, Unit: "L", Raw: "2 L", RecordedAt: at})

	series, ok := s.Vital("oxygen_flow")
	require.True(t, ok)
	assert.Equal(t, at, series.Readings[0].RecordedAt)
	assert.Equal(t, "2 L", series.Readings[0].Raw)
}

func TestRecordConcernsKeepsRepeatsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)

	s.RecordConcerns(ctx, []string{"Kidney function", "creatinine", "pain"})
	s.RecordConcerns(ctx, []string{"Creatinine rising"})
	s.RecordConcerns(ctx, []string{"", "  "})

	assert.Equal(t, []string{"creatinine", "pain", "creatinine"}, s.Concerns())
	assert.Equal(t, 2, p.saves)
}

func TestRecordQuestionCap(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithLimits(Limits{MaxQuestions: 2}))
	s.RecordQuestion(ctx, "one?")
	s.RecordQuestion(ctx, "two?")
	s.RecordQuestion(ctx, "three?")
	s.RecordQuestion(ctx, " ")

	qs := s.Questions()
	require.Len(t, qs, 2)
	assert.Equal(t, "two?", qs[0].Text)
	assert.Equal(t, "three?", qs[1].Text)
	assert.True(t, qs[0].AskedAt.Before(qs[1].AskedAt))
}

func TestSetProfileAssignsStableID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.SetProfile(ctx, model.PatientProfile{PatientName: "Ann"})
	id := s.Profile().ID
	require.NotEmpty(t, id)

	s.SetProfile(ctx, model.PatientProfile{PatientName: "Ann", Diagnosis: "pancreatic cancer"})
	assert.Equal(t, id, s.Profile().ID)
	assert.Equal(t, "pancreatic cancer", s.Profile().Diagnosis)
}

func TestSetPreference(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)
	s.SetPreference(ctx, "tone", "brief")
	s.SetPreference(ctx, "tone", "brief")
	assert.Equal(t, map[string]string{"tone": "brief"}, s.Preferences())
	assert.Equal(t, 1, p.saves)

	s.SetPreference(ctx, "tone", "")
	assert.Empty(t, s.Preferences())
	s.SetPreference(ctx, "missing", "")
	assert.Equal(t, 2, p.saves)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)
	s.SetProfile(ctx, model.PatientProfile{PatientName: "Ann"})
	s.AddSession(ctx, session("s1", 1, nil))
	s.AddFact(ctx, "fact")
	s.TrackVital(ctx, "wbc", 9, "")

	s.Reset(ctx)
	snap := s.Snapshot()
	assert.True(t, snap.Profile.IsZero())
	assert.Empty(t, snap.Profile.ID)
	assert.Nil(t, snap.Baseline)
	assert.Empty(t, snap.Sessions)
	assert.Empty(t, snap.Facts)
	assert.Empty(t, snap.Vitals)

	reopened := Open(ctx, p, WithLogger(quietLogger()))
	assert.Empty(t, reopened.Sessions())
	assert.True(t, reopened.Profile().IsZero())
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)
	s.SetProfile(ctx, model.PatientProfile{PatientName: "Ann", CareTeam: []string{"Dr. Lee"}})
	s.AddSession(ctx, session("s1", 1, map[string]string{"creatinine": "1.0"}, "pain"))
	s.AddSession(ctx, session("s5", 5, map[string]string{"creatinine": "1.5"}))
	s.AddFact(ctx, "Allergic to penicillin")
	s.AddPattern(ctx, "Worse in the evenings")
	s.TrackVital(ctx, "creatinine", 1.0, "mg/dL")
	s.TrackVital(ctx, "creatinine", 1.5, "mg/dL")
	s.RecordConcerns(ctx, []string{"pain"})
	s.RecordQuestion(ctx, "When can she eat?")
	s.SetPreference(ctx, "tone", "plain")

	reopened := Open(ctx, p, WithLogger(quietLogger()))
	assert.Equal(t, s.Snapshot(), reopened.Snapshot())
}

func TestOpenFallsBackOnBadSnapshot(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		p    *fakePersister
	}{
		{"garbage", &fakePersister{data: []byte("{not json")}},
		{"future schema", &fakePersister{data: []byte(`{"schema_version": 99, "facts": ["x"]}`)}},
		{"load error", &fakePersister{loadErr: errors.New("disk gone")}},
		{"nothing saved", &fakePersister{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Open(ctx, tt.p, WithLogger(quietLogger()))
			assert.Empty(t, s.Facts())
			assert.Equal(t, model.SchemaVersion, s.Snapshot().SchemaVersion)
		})
	}
}

func TestPersistFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)
	p.saveErr = errors.New("read-only")

	s.AddFact(ctx, "still here")
	assert.Equal(t, []string{"still here"}, s.Facts())
	assert.EqualError(t, s.LastPersistError(), "read-only")

	p.saveErr = nil
	s.AddFact(ctx, "next")
	assert.NoError(t, s.LastPersistError())
}

func TestNilPersister(t *testing.T) {
	s := New(nil, WithLogger(quietLogger()))
	s.AddFact(context.Background(), "fact")
	assert.Equal(t, []string{"fact"}, s.Facts())
	assert.NoError(t, s.LastPersistError())
	assert.Empty(t, Open(context.Background(), nil).Facts())
}
