package model

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	measureRe = regexp.MustCompile(`^([-+]?\d+(?:\.\d+)?|[-+]?\.\d+)\s*(.*)$`)
	ratioRe   = regexp.MustCompile(`^/\s*\d`)
)

// ParseMeasurement splits a recorded value such as "1.5 mg/dL" into its number
// and unit. Ratios like "120/80" and free text are not numeric.
func ParseMeasurement(raw string) (float64, string, bool) {
	s := strings.TrimSpace(raw)
	m := measureRe.FindStringSubmatch(s)
	if m == nil {
		return 0, "", false
	}
	unit := strings.TrimSpace(m[2])
	if ratioRe.MatchString(unit) {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return v, unit, true
}

// MeasurementText returns the number exactly as written in raw, such as "1.0"
// from "1.0 mg/dL", or "" when raw is not numeric.
func MeasurementText(raw string) string {
	if _, _, ok := ParseMeasurement(raw); !ok {
		return ""
	}
	return measureRe.FindStringSubmatch(strings.TrimSpace(raw))[1]
}
