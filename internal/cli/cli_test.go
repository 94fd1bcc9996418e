package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/caremem/internal/store"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	configPath, dbPath, patientFlag, backendFlag, logLevel = "", "", "", "", ""

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(args)
	require.NoError(t, RootCmd.Execute())
	return out.String()
}

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("CAREMEM_HOME", home)
	for _, k := range []string{"CAREMEM_DB", "CAREMEM_BACKEND", "CAREMEM_PATIENT", "CAREMEM_LOG_LEVEL", "CAREMEM_SNAPSHOT_DIR", "CAREMEM_KEEP_VERSIONS"} {
		t.Setenv(k, "")
	}
	return home
}

func TestNormalizeCommand(t *testing.T) {
	setupHome(t)
	out := execute(t, "", "normalize", "BP", "sats", "Dallas")

	var rows []struct {
		Term      string `json:"term"`
		Canonical string `json:"canonical"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "blood_pressure", rows[0].Canonical)
	assert.Equal(t, "oxygen_saturation", rows[1].Canonical)
	assert.Equal(t, "dialysis", rows[2].Canonical)
}

func TestIngestThenContext(t *testing.T) {
	setupHome(t)

	execute(t, "", "profile", "set", "--name", "Ann", "--caregiver", "Sam", "--admission-date", "2024-03-01")

	day1 := `{"date":"2024-03-01","key_points":["Settling in after surgery"],
		"medical_values":{"Creatinine":"1.0 mg/dL"},"concerns":["kidney function"],
		"transcript":"Nurse: She was walking with the physio today."}`
	day2 := `{"date":"2024-03-02","key_points":["Kidney numbers up"],
		"medical_values":{"Cr":"1.5 mg/dL"},"concerns":["kidney numbers"],
		"facts":["Allergic to penicillin"]}`
	execute(t, day1, "ingest")
	execute(t, day2, "ingest", "-")

	out := execute(t, "", "context", "--condition", "Resting comfortably")
	assert.Contains(t, out, "PATIENT MEMORY CONTEXT (2 sessions recorded, full history)")
	assert.Contains(t, out, "1.0 → 1.5 mg/dL (+50% from baseline) [CONCERNING]")
	assert.Contains(t, out, "Allergic to penicillin")
	assert.Contains(t, out, "raised in 2 sessions")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "Resting comfortably"))

	out = execute(t, "", "trend", "creatinine")
	assert.Contains(t, out, `"severity": "CONCERNING"`)
	assert.Contains(t, out, "Creatinine: 1 → 1.5 (+50% from baseline) [CONCERNING]")

	var hist []store.SnapshotRecord
	require.NoError(t, json.Unmarshal([]byte(execute(t, "", "history")), &hist))
	require.NotEmpty(t, hist)
	assert.Greater(t, hist[0].Version, hist[len(hist)-1].Version)

	out = execute(t, "", "search", "walking")
	assert.Contains(t, out, "physio")

	out = execute(t, "", "stats")
	assert.Contains(t, out, `"db_size"`)

	var exported []store.SnapshotRecord
	require.NoError(t, json.Unmarshal([]byte(execute(t, "", "export")), &exported))
	assert.Len(t, exported, len(hist))
}

func TestFileBackendFacts(t *testing.T) {
	setupHome(t)

	execute(t, "", "--backend", "file", "--patient", "bob", "fact", "add", "Lives", "alone")
	out := execute(t, "", "--backend", "file", "--patient", "bob", "fact", "list")
	assert.Contains(t, out, "Lives alone")

	out = execute(t, "", "--backend", "file", "patients")
	assert.Contains(t, out, `"bob"`)
}

func TestConfigShowReflectsFlags(t *testing.T) {
	setupHome(t)
	out := execute(t, "", "--patient", "carol", "--log-level", "debug", "config", "show")
	assert.Contains(t, out, "patient: carol")
	assert.Contains(t, out, "level: debug")
}
