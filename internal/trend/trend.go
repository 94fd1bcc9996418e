// Package trend annotates vital series with percent change from baseline and
// a metric-aware severity label.
package trend

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Severity is a short urgency label. The empty Severity means no flag.
type Severity string

const (
	None              Severity = ""
	Watch             Severity = "WATCH"
	Concerning        Severity = "CONCERNING"
	Critical          Severity = "CRITICAL"
	HighSupport       Severity = "HIGH SUPPORT"
	Increasing        Severity = "INCREASING"
	Fever             Severity = "FEVER"
	LowGrade          Severity = "LOW-GRADE"
	High              Severity = "HIGH"
	Rebound           Severity = "REBOUND"
	SignificantChange Severity = "SIGNIFICANT CHANGE"
)

const (
	highOxygenLiters = 4.0
	feverF           = 100.5
	lowGradeF        = 99.5
	wbcHigh          = 12.0
	wbcWatch         = 10.0
	genericPct       = 20.0
	// Temperatures below this are read as Celsius.
	celsiusCeiling = 45.0
)

// Classify returns the severity for a vital moving from baseline to current,
// where pct is the percent change between them. Policy is chosen by substring
// of the canonical name: renal and inflammatory markers are bad when rising,
// oxygen support is bad when rising or high, temperature uses absolute
// thresholds and everything else flags large swings in either direction.
func Classify(name string, baseline, current, pct float64) Severity {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "creatinine"):
		if current <= baseline {
			return None
		}
		switch {
		case pct > 50:
			return Critical
		case pct > 25:
			return Concerning
		case pct > 10:
			return Watch
		}
		return None
	case strings.Contains(n, "oxygen") && !strings.Contains(n, "saturation"):
		if current >= highOxygenLiters {
			return HighSupport
		}
		if current > baseline {
			return Increasing
		}
		return None
	case strings.Contains(n, "temp"):
		f := current
		if f < celsiusCeiling {
			f = f*9/5 + 32
		}
		switch {
		case f >= feverF:
			return Fever
		case f >= lowGradeF:
			return LowGrade
		}
		return None
	case strings.Contains(n, "wbc") || strings.Contains(n, "white"):
		switch {
		case current >= wbcHigh:
			return High
		case current >= wbcWatch:
			return Watch
		}
		return None
	}
	if math.Abs(pct) > genericPct {
		return SignificantChange
	}
	return None
}

// PercentChange is the change from baseline to current in percent, rounded to
// one decimal. A zero baseline yields 0.
func PercentChange(baseline, current float64) float64 {
	if baseline == 0 {
		return 0
	}
	return math.Round((current-baseline)/math.Abs(baseline)*1000) / 10
}

// Annotation summarizes one vital series.
type Annotation struct {
	Name     string   `json:"name"`
	Baseline float64  `json:"baseline"`
	Current  float64  `json:"current"`
	Previous *float64 `json:"previous,omitempty"`
	Percent  float64  `json:"percent_change"`
	Severity Severity `json:"severity,omitempty"`
	Count    int      `json:"count"`
}

// Analyze annotates values, treating the first as the baseline.
func Analyze(name string, values []float64) (Annotation, bool) {
	if len(values) == 0 {
		return Annotation{Name: name}, false
	}
	return AnalyzeFrom(name, values[0], values), true
}

// AnalyzeFrom annotates values against an explicit baseline, which may be a
// reading no longer present in values. values must not be empty.
func AnalyzeFrom(name string, baseline float64, values []float64) Annotation {
	a := Annotation{
		Name:     name,
		Baseline: baseline,
		Current:  values[len(values)-1],
		Count:    len(values),
	}
	if len(values) > 1 {
		prev := values[len(values)-2]
		a.Previous = &prev
	}
	a.Percent = PercentChange(baseline, a.Current)
	a.Severity = Classify(name, baseline, a.Current, a.Percent)

	n := strings.ToLower(name)
	if a.Severity == None && a.Previous != nil && a.Current > *a.Previous &&
		(strings.Contains(n, "wbc") || strings.Contains(n, "white")) {
		a.Severity = Rebound
	}
	return a
}

// FormatValue renders integral values without a decimal point and everything
// else with one decimal place.
func FormatValue(v float64) string {
	if v == math.Round(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// FormatPercent renders a signed percentage such as "+50%" or "-12.5%".
func FormatPercent(pct float64) string {
	s := FormatValue(pct)
	if pct >= 0 {
		s = "+" + s
	}
	return fmt.Sprintf("%s%%", s)
}
