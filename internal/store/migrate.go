package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"cadence/internal/cycle"
	"cadence/internal/engagement"
	"cadence/internal/logging"
)

// ErrUnsupportedVersion is returned for snapshots newer than CurrentVersion.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// MigrationResult describes how a raw snapshot was upgraded.
type MigrationResult struct {
	WasMigrated     bool
	FromVersion     int
	ToVersion       int
	PreservedData   []string // fields carried over unchanged
	DefaultsApplied []string // fields the old schema lacked
	Warnings        []string
}

// legacySnapshot is the v1 layout: only metrics and maturity were saved.
type legacySnapshot struct {
	Metrics  engagement.Metrics       `json:"metrics"`
	Maturity engagement.MaturityState `json:"maturity"`
}

// Migrate decodes raw at whatever version it was written and upgrades it to
// CurrentVersion.
func Migrate(raw []byte) (*Snapshot, *MigrationResult, error) {
	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	version := 1
	if probe.Version != nil {
		version = *probe.Version
	}
	result := &MigrationResult{FromVersion: version, ToVersion: CurrentVersion}

	switch {
	case version == CurrentVersion:
		snap := NewSnapshot()
		if err := json.Unmarshal(raw, snap); err != nil {
			return nil, nil, fmt.Errorf("failed to decode v%d snapshot: %w", version, err)
		}
		if snap.Observations == nil {
			snap.Observations = []cycle.Observation{}
		}
		return snap, result, nil

	case version == 1:
		var legacy legacySnapshot
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, nil, fmt.Errorf("failed to decode v1 snapshot: %w", err)
		}
		snap := migrateV1(legacy, result)
		logging.Store("migrated snapshot v%d -> v%d", result.FromVersion, result.ToVersion)
		return snap, result, nil

	case version > CurrentVersion:
		return nil, nil, fmt.Errorf("%w: %d (newest supported is %d)", ErrUnsupportedVersion, version, CurrentVersion)

	default:
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

func migrateV1(legacy legacySnapshot, result *MigrationResult) *Snapshot {
	result.WasMigrated = true

	snap := NewSnapshot()
	snap.Metrics = legacy.Metrics
	snap.Maturity = legacy.Maturity
	result.PreservedData = append(result.PreservedData, "metrics", "maturity")

	// v1 could store the unclamped formula result.
	if c := snap.Maturity.Confidence; c > 100 || c < 0 {
		if c > 100 {
			snap.Maturity.Confidence = 100
		} else {
			snap.Maturity.Confidence = 0
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf("maturity confidence %d clamped", c))
	}
	if !snap.Maturity.Level.Valid() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unknown maturity level %q; recomputed on restore", snap.Maturity.Level))
	}

	result.DefaultsApplied = append(result.DefaultsApplied,
		"observations", "phase_patterns", "autonomy_signals", "cycle")
	return snap
}
