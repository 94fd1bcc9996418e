// Package contextbuilder renders a patient's full memory into the text block
// that primes each model call. Nothing is truncated: every retained session,
// reading, fact and concern appears in the output.
package contextbuilder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/caremem/internal/model"
	"github.com/rcliao/caremem/internal/normalize"
	"github.com/rcliao/caremem/internal/trend"
)

// Input is everything Build renders. Baseline is the pinned first session;
// when nil the first of Sessions is used. SessionsDropped counts sessions
// evicted from the front of Sessions.
type Input struct {
	Profile          model.PatientProfile
	Baseline         *model.SessionMemory
	Sessions         []model.SessionMemory
	SessionsDropped  int
	Facts            []string
	Patterns         []string
	Preferences      map[string]string
	Vitals           map[string]model.VitalSeries
	Concerns         []string
	CurrentCondition string
}

// FromSnapshot builds an Input from a stored snapshot.
func FromSnapshot(snap model.Snapshot, currentCondition string) Input {
	return Input{
		Profile:          snap.Profile,
		Baseline:         snap.Baseline,
		Sessions:         snap.Sessions,
		SessionsDropped:  snap.SessionsDropped,
		Facts:            snap.Facts,
		Patterns:         snap.Patterns,
		Preferences:      snap.Preferences,
		Vitals:           snap.Vitals,
		Concerns:         snap.Concerns,
		CurrentCondition: currentCondition,
	}
}

const arrow = " → "

// Build renders in in a fixed section order: patient header, Day-1 baseline,
// vital trends, facts, recurring concerns, session history and the current
// condition. Empty sections are omitted. Build is pure; call it again after
// every mutation of the memory.
func Build(in Input) string {
	var b strings.Builder

	total := in.SessionsDropped + len(in.Sessions)
	if total > 0 {
		fmt.Fprintf(&b, "PATIENT MEMORY CONTEXT (%d %s recorded, full history)\n", total, plural(total, "session", "sessions"))
	}

	writePatient(&b, in.Profile, in.Preferences)

	base, hasBase, baseEvicted := baseline(in)
	if hasBase {
		writeBaseline(&b, base, in.SessionsDropped, baseEvicted)
	}

	writeVitals(&b, in, base, hasBase, baseEvicted)
	writeFacts(&b, in.Facts, in.Patterns)
	writeConcerns(&b, in.Concerns)

	history := in.Sessions
	if !baseEvicted && len(history) > 0 {
		history = history[1:]
	}
	writeHistory(&b, history, in.SessionsDropped, baseEvicted)

	if c := strings.TrimSpace(in.CurrentCondition); c != "" {
		section(&b, "CURRENT CONDITION")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// baseline reports the Day-1 session and whether it has left the session log.
func baseline(in Input) (model.SessionMemory, bool, bool) {
	if in.Baseline != nil {
		return *in.Baseline, true, in.SessionsDropped > 0
	}
	if len(in.Sessions) > 0 {
		return in.Sessions[0], true, false
	}
	return model.SessionMemory{}, false, false
}

func section(b *strings.Builder, title string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "=== %s ===\n", title)
}

func writePatient(b *strings.Builder, p model.PatientProfile, prefs map[string]string) {
	if p.IsZero() && len(prefs) == 0 {
		return
	}
	section(b, "PATIENT")
	if p.PatientName != "" {
		line := "Patient: " + p.PatientName
		if p.Relationship != "" {
			line += " (" + p.Relationship + ")"
		}
		b.WriteString(line + "\n")
	}
	if p.CaregiverName != "" {
		b.WriteString("Caregiver: " + p.CaregiverName + "\n")
	}
	if p.Diagnosis != "" {
		b.WriteString("Diagnosis: " + p.Diagnosis + "\n")
	}
	if p.SurgeryDate != nil {
		b.WriteString("Surgery date: " + p.SurgeryDate.Format("2006-01-02") + "\n")
	}
	if p.AdmissionDate != nil {
		b.WriteString("Admission date: " + p.AdmissionDate.Format("2006-01-02") + "\n")
	}
	writeList(b, "Care team", p.CareTeam)
	writeList(b, "Medications", p.Medications)
	writeList(b, "Allergies", p.Allergies)
	if len(prefs) > 0 {
		keys := sortedKeys(prefs)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + prefs[k]
		}
		b.WriteString("Caregiver preferences: " + strings.Join(parts, "; ") + "\n")
	}
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(label + ": " + strings.Join(items, ", ") + "\n")
}

func writeBaseline(b *strings.Builder, s model.SessionMemory, dropped int, evicted bool) {
	section(b, "DAY-1 BASELINE ("+s.Label(1)+")")
	writeSessionBody(b, s)
	if evicted {
		fmt.Fprintf(b, "Note: %d early %s evicted from the session log; this baseline is preserved from the first session.\n",
			dropped, plural(dropped, "session was", "sessions were"))
	}
}

func writeSessionBody(b *strings.Builder, s model.SessionMemory) {
	for _, kp := range s.KeyPoints {
		b.WriteString("- " + kp + "\n")
	}
	if len(s.MedicalValues) > 0 {
		keys := sortedKeys(s.MedicalValues)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = normalize.Label(normalize.Normalize(k)) + " " + s.MedicalValues[k]
		}
		b.WriteString("Values: " + strings.Join(parts, "; ") + "\n")
	}
	writeList(b, "Concerns", s.Concerns)
	writeList(b, "Next steps", s.NextSteps)
	writeList(b, "Questions asked", s.QuestionsAsked)
}

func writeVitals(b *strings.Builder, in Input, base model.SessionMemory, hasBase, baseEvicted bool) {
	series := make(map[string]model.VitalSeries, len(in.Vitals))
	for name, s := range in.Vitals {
		if len(s.Readings) > 0 {
			series[name] = s
		}
	}
	var sessions []model.SessionMemory
	if hasBase && baseEvicted {
		sessions = append(sessions, base)
	}
	sessions = append(sessions, in.Sessions...)
	for name, s := range deriveSeries(sessions) {
		if _, tracked := series[name]; !tracked {
			series[name] = s
		}
	}
	if len(series) == 0 {
		return
	}

	section(b, "VITAL TRENDS")
	for _, name := range sortedKeys(series) {
		b.WriteString(vitalLine(name, series[name]) + "\n")
	}
}

// deriveSeries rebuilds series from numeric session values so that vitals
// reported only inside session summaries still show a trend.
func deriveSeries(sessions []model.SessionMemory) map[string]model.VitalSeries {
	out := make(map[string]model.VitalSeries)
	for _, s := range sessions {
		for _, k := range sortedKeys(s.MedicalValues) {
			raw := s.MedicalValues[k]
			v, unit, ok := model.ParseMeasurement(raw)
			if !ok {
				continue
			}
			name := normalize.Normalize(k)
			if name == "" {
				continue
			}
			vs := out[name]
			vs.Readings = append(vs.Readings, model.VitalReading{Value: v, Unit: unit, Raw: raw, RecordedAt: s.Date})
			out[name] = vs
		}
	}
	return out
}

func vitalLine(name string, s model.VitalSeries) string {
	trail := make([]string, 0, len(s.Readings)+2)
	if s.Dropped > 0 && s.Baseline != nil {
		// The baseline is itself the first evicted reading.
		trail = append(trail, readingText(*s.Baseline))
		if gap := s.Dropped - 1; gap > 0 {
			trail = append(trail, fmt.Sprintf("[%d %s evicted]", gap, plural(gap, "reading", "readings")))
		}
	}
	for _, r := range s.Readings {
		trail = append(trail, readingText(r))
	}

	line := "- " + normalize.Label(name) + ": " + strings.Join(trail, arrow)
	if unit := s.Unit(); unit != "" {
		line += " " + unit
	}

	base, _ := s.BaselineValue()
	a := trend.AnalyzeFrom(name, base, s.Values())
	if len(s.Readings) > 1 || s.Dropped > 0 {
		line += " (" + trend.FormatPercent(a.Percent) + " from baseline)"
	} else {
		line += " (single reading)"
	}
	if a.Severity != trend.None {
		line += " [" + string(a.Severity) + "]"
	}
	return line
}

func readingText(r model.VitalReading) string {
	if t := model.MeasurementText(r.Raw); t != "" {
		return t
	}
	return trend.FormatValue(r.Value)
}

func writeFacts(b *strings.Builder, facts, patterns []string) {
	seen := make(map[string]bool, len(facts))
	var kept []string
	for _, f := range facts {
		f = strings.TrimSpace(f)
		key := normalize.Normalize(f)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, f)
	}
	if len(kept) > 0 {
		section(b, "KNOWN FACTS")
		for _, f := range kept {
			b.WriteString("- " + f + "\n")
		}
	}
	if len(patterns) > 0 {
		section(b, "OBSERVED PATTERNS")
		for _, p := range patterns {
			b.WriteString("- " + p + "\n")
		}
	}
}

// ConcernCount is a canonical concern and how many times it was recorded.
type ConcernCount struct {
	Name  string
	Count int
}

// RecurringConcerns counts canonical concern occurrences and returns those
// seen at least twice, most frequent first.
func RecurringConcerns(concerns []string) []ConcernCount {
	counts := make(map[string]int)
	for _, c := range concerns {
		if n := normalize.Normalize(c); n != "" {
			counts[n]++
		}
	}
	var out []ConcernCount
	for name, n := range counts {
		if n >= 2 {
			out = append(out, ConcernCount{Name: name, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func writeConcerns(b *strings.Builder, concerns []string) {
	recurring := RecurringConcerns(concerns)
	if len(recurring) == 0 {
		return
	}
	section(b, "RECURRING CONCERNS")
	for _, c := range recurring {
		tag := "RECURRING"
		if c.Count >= 3 {
			tag = "PERSISTENT"
		}
		fmt.Fprintf(b, "- %s: raised in %d sessions [%s]\n", normalize.Label(c.Name), c.Count, tag)
	}
}

func writeHistory(b *strings.Builder, sessions []model.SessionMemory, dropped int, baseEvicted bool) {
	if len(sessions) == 0 {
		return
	}
	section(b, "SESSION HISTORY")
	// Ordinals count from the first session ever recorded.
	first := dropped + 1
	if !baseEvicted {
		first = dropped + 2
	}
	for i, s := range sessions {
		fmt.Fprintf(b, "--- %s ---\n", s.Label(first+i))
		writeSessionBody(b, s)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
