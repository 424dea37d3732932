package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evfleet/core/model"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("target: X\n"), 0o644))
	_, err = Load(unnamed)
	assert.Error(t, err)
}

func TestIntervalDef_ToModel(t *testing.T) {
	iv, err := IntervalDef{Scenario: "hoch", Factor: "F3", From: 0, To: 2030, ValueFrom: 0.1, ValueTo: 0.9}.ToModel("M1")
	require.NoError(t, err)
	assert.Equal(t, model.ScenarioHigh, iv.Scenario)
	assert.Equal(t, model.FactorElectricShare, iv.Factor)
	assert.Equal(t, model.Target("M1"), iv.Target)

	_, err = IntervalDef{Scenario: "low", Factor: "f9"}.ToModel("M1")
	assert.Error(t, err)
}

func TestParseError(t *testing.T) {
	err, ok := parseError("calibration")
	assert.True(t, ok)
	assert.ErrorIs(t, err, model.ErrCalibration)
	_, ok = parseError("nope")
	assert.False(t, ok)
}
