// Package model defines the patient memory data types.
package model

import (
	"fmt"
	"time"
)

// SchemaVersion is the snapshot format written by this build.
const SchemaVersion = 1

// PatientProfile is the identity captured at onboarding.
type PatientProfile struct {
	ID            string     `json:"id,omitempty"`
	CaregiverName string     `json:"caregiver_name,omitempty"`
	PatientName   string     `json:"patient_name,omitempty"`
	Relationship  string     `json:"relationship,omitempty"`
	Diagnosis     string     `json:"diagnosis,omitempty"`
	SurgeryDate   *time.Time `json:"surgery_date,omitempty"`
	AdmissionDate *time.Time `json:"admission_date,omitempty"`
	CareTeam      []string   `json:"care_team"`
	Medications   []string   `json:"medications"`
	Allergies     []string   `json:"allergies"`
}

// IsZero reports whether no profile field has been set.
func (p PatientProfile) IsZero() bool {
	return p.CaregiverName == "" && p.PatientName == "" && p.Relationship == "" &&
		p.Diagnosis == "" && p.SurgeryDate == nil && p.AdmissionDate == nil &&
		len(p.CareTeam) == 0 && len(p.Medications) == 0 && len(p.Allergies) == 0
}

// DayNumber returns the 1-based hospital day of t, counted from the admission
// date, or from the surgery date when no admission date is known.
func (p PatientProfile) DayNumber(t time.Time) (int, bool) {
	start := p.AdmissionDate
	if start == nil {
		start = p.SurgeryDate
	}
	if start == nil || t.IsZero() {
		return 0, false
	}
	days := int(truncateDay(t).Sub(truncateDay(*start)).Hours() / 24)
	if days < 0 {
		return 0, false
	}
	return days + 1, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SessionMemory is the structured summary of one recorded conversation.
// It is never modified after being added to the store.
type SessionMemory struct {
	ID             string            `json:"id"`
	Date           time.Time         `json:"date"`
	DayNumber      *int              `json:"day_number,omitempty"`
	KeyPoints      []string          `json:"key_points"`
	MedicalValues  map[string]string `json:"medical_values"`
	Concerns       []string          `json:"concerns"`
	NextSteps      []string          `json:"next_steps"`
	QuestionsAsked []string          `json:"questions_asked"`
}

// IsEmpty reports whether the session carries no content at all.
func (s SessionMemory) IsEmpty() bool {
	return len(s.KeyPoints) == 0 && len(s.MedicalValues) == 0 && len(s.Concerns) == 0 &&
		len(s.NextSteps) == 0 && len(s.QuestionsAsked) == 0
}

// Label names the session for display. ordinal is its 1-based position in the
// full session history and is used when no day number was recorded.
func (s SessionMemory) Label(ordinal int) string {
	var name string
	if s.DayNumber != nil {
		name = fmt.Sprintf("Day %d", *s.DayNumber)
	} else {
		name = fmt.Sprintf("Session %d", ordinal)
	}
	if s.Date.IsZero() {
		return name
	}
	return name + ", " + s.Date.Format("2006-01-02")
}

// VitalReading is one measurement of a vital sign or lab value.
type VitalReading struct {
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	Raw        string    `json:"raw,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// VitalSeries is the ordered history of one vital. Baseline is the first
// reading ever tracked and survives eviction; Dropped counts evicted readings.
type VitalSeries struct {
	Baseline *VitalReading  `json:"baseline,omitempty"`
	Readings []VitalReading `json:"readings"`
	Dropped  int            `json:"dropped,omitempty"`
}

// Values returns the reading values in temporal order.
func (s VitalSeries) Values() []float64 {
	out := make([]float64, len(s.Readings))
	for i, r := range s.Readings {
		out[i] = r.Value
	}
	return out
}

// BaselineValue is the value percent change is measured against.
func (s VitalSeries) BaselineValue() (float64, bool) {
	if s.Baseline != nil {
		return s.Baseline.Value, true
	}
	if len(s.Readings) > 0 {
		return s.Readings[0].Value, true
	}
	return 0, false
}

// Unit returns the most recently recorded unit.
func (s VitalSeries) Unit() string {
	for i := len(s.Readings) - 1; i >= 0; i-- {
		if s.Readings[i].Unit != "" {
			return s.Readings[i].Unit
		}
	}
	if s.Baseline != nil {
		return s.Baseline.Unit
	}
	return ""
}

// Question is an entry in the caregiver question log.
type Question struct {
	Text    string    `json:"text"`
	AskedAt time.Time `json:"asked_at"`
}

// Snapshot is the full serialized entity model of one patient's memory.
type Snapshot struct {
	SchemaVersion   int                    `json:"schema_version"`
	Profile         PatientProfile         `json:"profile"`
	Baseline        *SessionMemory         `json:"baseline,omitempty"`
	Sessions        []SessionMemory        `json:"sessions"`
	SessionsDropped int                    `json:"sessions_dropped,omitempty"`
	Facts           []string               `json:"facts"`
	Patterns        []string               `json:"patterns"`
	Vitals          map[string]VitalSeries `json:"vitals"`
	Concerns        []string               `json:"concerns"`
	Preferences     map[string]string      `json:"preferences"`
	Questions       []Question             `json:"questions"`
	UpdatedAt       time.Time              `json:"updated_at,omitempty"`
}

// NewSnapshot returns the empty initial state.
func NewSnapshot() Snapshot {
	return Snapshot{SchemaVersion: SchemaVersion}
}
