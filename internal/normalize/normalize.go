// Package normalize canonicalizes free-text medical terms, collapsing
// clinical synonyms and speech-to-text misrecognitions onto one identifier.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer evaluates an ordered rule list. The zero value has no rules and
// only applies the fallback form.
type Normalizer struct {
	rules []Rule
}

// New returns a Normalizer over rules, evaluated in the given order.
func New(rules []Rule) *Normalizer {
	return &Normalizer{rules: rules}
}

var std = New(DefaultRules)

// Normalize maps term to its canonical identifier using DefaultRules.
func Normalize(term string) string { return std.Normalize(term) }

// NormalizeAndDedupe normalizes terms with DefaultRules and drops duplicates.
func NormalizeAndDedupe(terms []string) []string { return std.NormalizeAndDedupe(terms) }

// Normalize maps term to the canonical value of the first matching rule.
// Unmatched input falls back to its lower-cased form with whitespace runs
// replaced by underscores. The result is never empty for non-blank input.
func (n *Normalizer) Normalize(term string) string {
	lowered := strings.ToLower(strings.TrimSpace(term))
	if lowered == "" {
		return ""
	}
	h := haystack(lowered)
	for _, r := range n.rules {
		if r.matches(h) {
			return r.canonical(h)
		}
	}
	return strings.Join(strings.Fields(lowered), "_")
}

// NormalizeAndDedupe normalizes every term and removes duplicates and blanks.
// The result keeps first-seen order.
func (n *Normalizer) NormalizeAndDedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	var out []string
	for _, t := range terms {
		c := n.Normalize(t)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// haystack turns punctuation and underscores into spaces, collapses runs and
// pads both ends so whole-word triggers match at the edges.
func haystack(lowered string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/' {
			return r
		}
		return ' '
	}, lowered)
	return " " + strings.Join(strings.Fields(cleaned), " ") + " "
}

// Canonicals lists every fixed canonical value DefaultRules can produce,
// including resolver outcomes.
func Canonicals() []string {
	return []string{
		"pressure_injury", "pressure_injury_unstageable", "pressure_injury_stage_1",
		"pressure_injury_stage_2", "pressure_injury_stage_3", "pressure_injury_stage_4",
		"oxygen_saturation", "shortness_of_breath", "ecmo", "oxygen_flow", "heart_rate",
		"blood_pressure", "afebrile", "fever", "temperature", "creatinine",
		"acute_kidney_injury", "dialysis", "wbc", "mechanical_ventilation", "tracheostomy",
		"whipple_procedure", "sepsis", "pneumonia", "delirium",
		"pain", "pain_mild", "pain_moderate", "pain_severe",
		"hemoglobin", "platelets", "potassium", "lactate", "respiratory_rate", "blood_sugar",
		"weight", "appetite", "sleep", "fall_risk", "mobility", "uti", "infection",
		"nausea_vomiting", "discharge_planning", "anxiety_agitation", "edema", "blood_clot",
	}
}

var acronyms = map[string]string{
	"wbc":  "WBC",
	"ecmo": "ECMO",
	"uti":  "UTI",
}

// Label renders a canonical identifier for display: "oxygen_flow" becomes
// "Oxygen Flow".
func Label(canonical string) string {
	if a, ok := acronyms[canonical]; ok {
		return a
	}
	return cases.Title(language.English).String(strings.ReplaceAll(canonical, "_", " "))
}
