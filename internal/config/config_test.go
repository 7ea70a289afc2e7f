package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "fitkage.log", cfg.Log.File)
	assert.Equal(t, SensorMock, cfg.Sensor.Kind)
	assert.Equal(t, 8080, cfg.Sensor.MockPort)
	assert.Equal(t, GoalStatic, cfg.Goal.Backend)
	assert.Equal(t, "user_123", cfg.Goal.UserID)
	assert.Equal(t, 5*time.Second, cfg.Goal.Timeout)
	assert.Equal(t, 3, cfg.Goal.MaxRetries)
	assert.Equal(t, 0.8, cfg.StrideLengthM)
	assert.Equal(t, 0.125, cfg.Water.Serving)
	assert.Equal(t, 30, cfg.Render.FPS)
	assert.Empty(t, cfg.Snapshot)
	assert.Equal(t, 0.5, cfg.SnapshotLevel)
}

func TestLoad_FileEnvAndFlagsLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fitkage.yaml")
	content := `
sensor:
  kind: ble
  ble_address: "AA:BB:CC:DD:EE:FF"
goal:
  backend: firebase
  firebase_url: https://example-rtdb.firebaseio.com
  timeout: 2s
render:
  fps: 20
water:
  serving: 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("FITKAGE_RENDER_FPS", "45")
	t.Setenv("FITKAGE_GOAL_USER_ID", "user_from_env")

	cfg, err := Load([]string{"--config", path, "--render.fps", "60", "--snapshot-level=0.75"})
	require.NoError(t, err)

	assert.Equal(t, SensorBLE, cfg.Sensor.Kind)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Sensor.BLEAddress)
	assert.Equal(t, GoalFirebase, cfg.Goal.Backend)
	assert.Equal(t, 2*time.Second, cfg.Goal.Timeout)
	assert.Equal(t, 0.25, cfg.Water.Serving)
	// env beats file, flag beats env
	assert.Equal(t, "user_from_env", cfg.Goal.UserID)
	assert.Equal(t, 60, cfg.Render.FPS)
	assert.Equal(t, 0.75, cfg.SnapshotLevel)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("FITKAGE_STRIDE_LENGTH_M", "0.7")
	t.Setenv("FITKAGE_GOAL_STATIC", "5000")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.7, cfg.StrideLengthM)
	assert.Equal(t, 5000, cfg.Goal.Static)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][]string{
		"unknown sensor":         {"--sensor.kind", "pigeon"},
		"unknown backend":        {"--goal.backend", "sqlite"},
		"firebase without url":   {"--goal.backend", "firebase"},
		"negative stride":        {"--stride-length-m", "-1"},
		"serving over one":       {"--water.serving", "1.5"},
		"zero fps":               {"--render.fps", "0"},
		"empty snapshot size":    {"--snapshot", "out.png", "--snapshot-width", "0"},
		"unknown flag":           {"--no-such-flag"},
		"config file is missing": {"--config", "/does/not/exist.yaml"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(args)
			assert.Error(t, err)
		})
	}
}

func TestLoad_Help(t *testing.T) {
	fs := NewFlagSet()
	fs.SetOutput(io.Discard)
	err := fs.Parse([]string{"--help"})
	assert.ErrorIs(t, err, ErrHelp)
}

func TestLoad_MockPort(t *testing.T) {
	cfg, err := Load([]string{"--sensor.mock-port", "-1"})
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.Sensor.MockPort)

	_, err = Load([]string{"--sensor.mock-port", "-2"})
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	cfg.StrideLengthM = 0
	cfg.Render.FPS = 0
	cfg.Goal.UserID = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(errors.Unwrap(err)), 3)
	assert.Contains(t, err.Error(), "stride_length_m")
	assert.Contains(t, err.Error(), "render.fps")
	assert.Contains(t, err.Error(), "goal.user_id")
}
