package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/composer"
	"cadence/internal/gating"
	"cadence/internal/store"
	"cadence/internal/types"
)

// resetFlags restores every flag to its default so runs don't leak into
// each other through cobra's package-level commands.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func runCLI(t *testing.T, ws string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CADENCE_STORE_BACKEND", "")
	t.Setenv("CADENCE_DB", "")
	t.Setenv("CADENCE_PERSONA", "")

	resetFlags(rootCmd)
	t.Cleanup(func() {
		resetFlags(rootCmd)
		workspace = ""
		configPath = ""
	})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--workspace", ws}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestInitCmd(t *testing.T) {
	ws := t.TempDir()

	out, err := runCLI(t, ws, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized cadence")
	_, err = os.Stat(filepath.Join(ws, ".cadence", "config.yaml"))
	require.NoError(t, err)

	out, err = runCLI(t, ws, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already initialized")
}

func TestCycleAndObserve(t *testing.T) {
	ws := t.TempDir()

	_, err := runCLI(t, ws, "observe", "--mood", "anxious")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active cycle")

	_, err = runCLI(t, ws, "cycle", "start", "--date", "not-a-date")
	require.Error(t, err)

	out, err := runCLI(t, ws, "cycle", "start", "--date", "2026-01-01", "--length", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Cycle started 2026-01-01 (30 days, period 5 days)")

	out, err = runCLI(t, ws, "observe", "--energy", "2", "--symptom", "bloating", "--symptom", "acne", "--notes", "slow day")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded detailed observation")

	out, err = runCLI(t, ws, "export")
	require.NoError(t, err)
	var snap store.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap.Observations, 1)
	obs := snap.Observations[0]
	assert.Equal(t, 2, obs.Energy)
	assert.Equal(t, []string{"bloating", "acne"}, obs.Symptoms)
	assert.Equal(t, 1, snap.AutonomySignals.DetailedObservations)
	assert.Equal(t, 1, snap.Metrics.CycleTrackedDays)
}

func TestTrackCmd(t *testing.T) {
	ws := t.TempDir()

	out, err := runCLI(t, ws, "track", "notebook_entry")
	require.NoError(t, err)
	assert.Contains(t, out, "Tracked notebook_entry. Maturity: discovery")

	_, err = runCLI(t, ws, "track", "phase_explored", "--phase", "luteal")
	require.NoError(t, err)
	_, err = runCLI(t, ws, "track", "phase_explored", "--phase", "LUTEAL")
	require.NoError(t, err)
	_, err = runCLI(t, ws, "track", "phase_explored", "--phase", "banana")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown phase "banana"`)

	out, err = runCLI(t, ws, "export")
	require.NoError(t, err)
	var snap store.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 1, snap.Metrics.NotebookEntriesCreated)
	assert.Equal(t, []string{"luteal"}, snap.Metrics.PhasesExplored)
	assert.Equal(t, 1, snap.Metrics.DaysUsed)
}

func TestCorrectCmd(t *testing.T) {
	ws := t.TempDir()

	_, err := runCLI(t, ws, "correct", "winter")
	require.Error(t, err)

	out, err := runCLI(t, ws, "correct", "luteal")
	require.NoError(t, err)
	assert.Contains(t, out, "Start a cycle")
}

func TestPhaseCmd(t *testing.T) {
	ws := t.TempDir()

	out, err := runCLI(t, ws, "phase")
	require.NoError(t, err)
	assert.Contains(t, out, "No active cycle")

	_, err = runCLI(t, ws, "cycle", "start")
	require.NoError(t, err)

	out, err = runCLI(t, ws, "phase", "--json")
	require.NoError(t, err)
	var inf struct {
		Phase  types.Phase           `json:"phase"`
		Method types.InferenceMethod `json:"method"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &inf))
	assert.Equal(t, types.PhaseMenstrual, inf.Phase, "day 1 of a fresh cycle")
	assert.Equal(t, types.MethodPredictive, inf.Method)
}

func TestGuideCmd(t *testing.T) {
	ws := t.TempDir()
	_, err := runCLI(t, ws, "cycle", "start")
	require.NoError(t, err)

	out, err := runCLI(t, ws, "guide", "--plain")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Menstrual phase"), out)

	_, err = runCLI(t, ws, "guide", "--phase", "spring")
	require.Error(t, err)

	out, err = runCLI(t, ws, "guide")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestFeaturesCmd(t *testing.T) {
	ws := t.TempDir()

	out, err := runCLI(t, ws, "features", "calendar_view")
	require.NoError(t, err)
	var res gating.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Found)
	assert.False(t, res.Available)

	_, err = runCLI(t, ws, "features", "teleport")
	require.Error(t, err)

	out, err = runCLI(t, ws, "features")
	require.NoError(t, err)
	assert.Contains(t, out, "self_guided_mode")
}

func TestComposeAndStatus(t *testing.T) {
	ws := t.TempDir()

	out, err := runCLI(t, ws, "compose")
	require.NoError(t, err)
	var cfg composer.Configuration
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, types.MaturityDiscovery, cfg.Maturity)
	assert.Equal(t, 1, cfg.VignetteLimit)

	out, err = runCLI(t, ws, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Maturity:")
	assert.Contains(t, out, "No active cycle")

	out, err = runCLI(t, ws, "suggest")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestResetCmd(t *testing.T) {
	ws := t.TempDir()
	_, err := runCLI(t, ws, "track", "notebook_entry")
	require.NoError(t, err)

	_, err = runCLI(t, ws, "reset")
	require.Error(t, err)

	out, err := runCLI(t, ws, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "reset")

	out, err = runCLI(t, ws, "export")
	require.NoError(t, err)
	var snap store.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Zero(t, snap.Metrics.NotebookEntriesCreated)
}

func TestSQLiteBackend(t *testing.T) {
	ws := t.TempDir()
	_, err := runCLI(t, ws, "init")
	require.NoError(t, err)

	cfgPath := filepath.Join(ws, ".cadence", "config.yaml")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	data = bytes.Replace(data, []byte("backend: json"), []byte("backend: sqlite"), 1)
	require.NoError(t, os.WriteFile(cfgPath, data, 0644))

	_, err = runCLI(t, ws, "track", "insight_saved")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(ws, ".cadence", "state.db"))
	require.NoError(t, err)

	out, err := runCLI(t, ws, "export")
	require.NoError(t, err)
	var snap store.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, 1, snap.Metrics.InsightsSaved)
}
