package memory

import (
	"sort"

	"github.com/rcliao/caremem/internal/model"
	"github.com/rcliao/caremem/internal/normalize"
	"github.com/rcliao/caremem/internal/trend"
)

// Snapshot returns a copy of the full entity model.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Profile returns the patient profile.
func (s *Store) Profile() model.PatientProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Profile.Clone()
}

// Baseline returns the pinned first session, if any session was ever added.
func (s *Store) Baseline() (model.SessionMemory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Baseline == nil {
		return model.SessionMemory{}, false
	}
	return s.snap.Baseline.Clone(), true
}

// Sessions returns the retained sessions, oldest first.
func (s *Store) Sessions() []model.SessionMemory {
	return s.Snapshot().Sessions
}

// Facts returns the retained facts, oldest first.
func (s *Store) Facts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snap.Facts...)
}

// Patterns returns the observed patterns.
func (s *Store) Patterns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snap.Patterns...)
}

// Concerns returns every recorded concern occurrence.
func (s *Store) Concerns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snap.Concerns...)
}

// Questions returns the question log, oldest first.
func (s *Store) Questions() []model.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Question(nil), s.snap.Questions...)
}

// Preferences returns the caregiver preferences.
func (s *Store) Preferences() map[string]string {
	return s.Snapshot().Preferences
}

// Vitals returns every tracked series keyed by canonical name.
func (s *Store) Vitals() map[string]model.VitalSeries {
	return s.Snapshot().Vitals
}

// VitalNames returns the tracked vital names in sorted order.
func (s *Store) VitalNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.snap.Vitals))
	for k := range s.snap.Vitals {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Vital returns one series. name is canonicalized first.
func (s *Store) Vital(name string) (model.VitalSeries, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.snap.Vitals[normalize.Normalize(name)]
	if !ok {
		return model.VitalSeries{}, false
	}
	return v.Clone(), true
}

// Trend annotates the named series against its pinned baseline.
func (s *Store) Trend(name string) (trend.Annotation, bool) {
	name = normalize.Normalize(name)
	series, ok := s.Vital(name)
	if !ok || len(series.Readings) == 0 {
		return trend.Annotation{Name: name}, false
	}
	base, _ := series.BaselineValue()
	return trend.AnalyzeFrom(name, base, series.Values()), true
}
