package model

import "time"

// Clone returns a deep copy. Nil collections stay nil so a cloned snapshot
// serializes exactly like the original.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Profile = s.Profile.Clone()
	if s.Baseline != nil {
		b := s.Baseline.Clone()
		out.Baseline = &b
	}
	if s.Sessions != nil {
		out.Sessions = make([]SessionMemory, len(s.Sessions))
		for i, sess := range s.Sessions {
			out.Sessions[i] = sess.Clone()
		}
	}
	out.Facts = cloneStrings(s.Facts)
	out.Patterns = cloneStrings(s.Patterns)
	out.Concerns = cloneStrings(s.Concerns)
	out.Preferences = cloneStringMap(s.Preferences)
	if s.Vitals != nil {
		out.Vitals = make(map[string]VitalSeries, len(s.Vitals))
		for k, v := range s.Vitals {
			out.Vitals[k] = v.Clone()
		}
	}
	if s.Questions != nil {
		out.Questions = append(make([]Question, 0, len(s.Questions)), s.Questions...)
	}
	return out
}

// Clone returns a deep copy of the profile.
func (p PatientProfile) Clone() PatientProfile {
	out := p
	out.SurgeryDate = cloneTime(p.SurgeryDate)
	out.AdmissionDate = cloneTime(p.AdmissionDate)
	out.CareTeam = cloneStrings(p.CareTeam)
	out.Medications = cloneStrings(p.Medications)
	out.Allergies = cloneStrings(p.Allergies)
	return out
}

// Clone returns a deep copy of the session.
func (s SessionMemory) Clone() SessionMemory {
	out := s
	if s.DayNumber != nil {
		d := *s.DayNumber
		out.DayNumber = &d
	}
	out.KeyPoints = cloneStrings(s.KeyPoints)
	out.MedicalValues = cloneStringMap(s.MedicalValues)
	out.Concerns = cloneStrings(s.Concerns)
	out.NextSteps = cloneStrings(s.NextSteps)
	out.QuestionsAsked = cloneStrings(s.QuestionsAsked)
	return out
}

// Clone returns a deep copy of the series.
func (s VitalSeries) Clone() VitalSeries {
	out := s
	if s.Baseline != nil {
		b := *s.Baseline
		out.Baseline = &b
	}
	if s.Readings != nil {
		out.Readings = append(make([]VitalReading, 0, len(s.Readings)), s.Readings...)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
