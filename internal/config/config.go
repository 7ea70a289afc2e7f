// Package config loads app settings from defaults, an optional YAML file,
// FITKAGE_* environment variables and command line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	AppName   = "fitkage"
	envPrefix = "FITKAGE"
)

const (
	SensorMock = "mock"
	SensorBLE  = "ble"

	GoalFirebase = "firebase"
	GoalRedis    = "redis"
	GoalStatic   = "static"
)

type LogConfig struct {
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

type SensorConfig struct {
	Kind           string        `mapstructure:"kind"`
	BLEAddress     string        `mapstructure:"ble_address"`
	BLEScanTimeout time.Duration `mapstructure:"ble_scan_timeout"`
	MockPort       int           `mapstructure:"mock_port"`
	MockCadenceSPM int           `mapstructure:"mock_cadence_spm"`
}

type GoalConfig struct {
	Backend       string        `mapstructure:"backend"`
	UserID        string        `mapstructure:"user_id"`
	FirebaseURL   string        `mapstructure:"firebase_url"`
	FirebaseAuth  string        `mapstructure:"firebase_auth"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Static        int           `mapstructure:"static"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

type WaterConfig struct {
	// Serving is the fill fraction one drink adds.
	Serving float64 `mapstructure:"serving"`
}

type RenderConfig struct {
	FPS int `mapstructure:"fps"`
}

type PrefsConfig struct {
	Path string `mapstructure:"path"`
}

type Config struct {
	Log           LogConfig    `mapstructure:"log"`
	Sensor        SensorConfig `mapstructure:"sensor"`
	Goal          GoalConfig   `mapstructure:"goal"`
	Water         WaterConfig  `mapstructure:"water"`
	Render        RenderConfig `mapstructure:"render"`
	Prefs         PrefsConfig  `mapstructure:"prefs"`
	StrideLengthM float64      `mapstructure:"stride_length_m"`

	Snapshot       string  `mapstructure:"snapshot"`
	SnapshotLevel  float64 `mapstructure:"snapshot_level"`
	SnapshotWidth  int     `mapstructure:"snapshot_width"`
	SnapshotHeight int     `mapstructure:"snapshot_height"`
}

// ErrHelp is returned by Load when --help was requested.
var ErrHelp = pflag.ErrHelp

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.file", AppName+".log")
	v.SetDefault("log.max_size_mb", 10)

	v.SetDefault("sensor.kind", SensorMock)
	v.SetDefault("sensor.ble_address", "")
	v.SetDefault("sensor.mock_port", 8080)
	v.SetDefault("sensor.mock_cadence_spm", 100)
	v.SetDefault("sensor.ble_scan_timeout", 15*time.Second)

	v.SetDefault("goal.backend", GoalStatic)
	v.SetDefault("goal.user_id", "user_123")
	v.SetDefault("goal.firebase_url", "")
	v.SetDefault("goal.firebase_auth", "")
	v.SetDefault("goal.redis_addr", "localhost:6379")
	v.SetDefault("goal.redis_password", "")
	v.SetDefault("goal.redis_db", 0)
	v.SetDefault("goal.static", 0)
	v.SetDefault("goal.timeout", 5*time.Second)
	v.SetDefault("goal.max_retries", 3)

	v.SetDefault("stride_length_m", 0.8)
	v.SetDefault("water.serving", 0.125)
	v.SetDefault("prefs.path", "")
	v.SetDefault("render.fps", 30)
	v.SetDefault("snapshot", "")
	v.SetDefault("snapshot_level", 0.5)
	v.SetDefault("snapshot_width", 200)
	v.SetDefault("snapshot_height", 300)
}

// NewFlagSet declares one flag per config key. Flag names use dots and dashes
// the same way the keys do, e.g. --goal.backend, --snapshot-level.
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")

	fs.String("log.file", "", "log file path")
	fs.Int("log.max-size-mb", 0, "rotate the log file after this many megabytes")

	fs.String("sensor.kind", "", "step source: mock or ble")
	fs.String("sensor.ble-address", "", "BLE address of the cadence sensor (empty scans for any)")
	fs.Int("sensor.mock-port", 0, "HTTP port of the mock sensor control page (0 picks a free port, -1 disables it)")
	fs.Int("sensor.mock-cadence-spm", 0, "initial mock cadence in steps per minute")
	fs.Duration("sensor.ble-scan-timeout", 0, "give up the BLE scan after this long")

	fs.String("goal.backend", "", "goal store: firebase, redis or static")
	fs.String("goal.user-id", "", "user whose goal is read")
	fs.String("goal.firebase-url", "", "Firebase realtime database URL")
	fs.String("goal.firebase-auth", "", "Firebase auth token")
	fs.String("goal.redis-addr", "", "Redis address")
	fs.String("goal.redis-password", "", "Redis password")
	fs.Int("goal.redis-db", 0, "Redis database")
	fs.Int("goal.static", 0, "goal used by the static backend")
	fs.Duration("goal.timeout", 0, "timeout of each goal fetch attempt")
	fs.Int("goal.max-retries", 0, "goal fetch retries after the first attempt")

	fs.Float64("stride-length-m", 0, "stride length in metres")
	fs.Float64("water.serving", 0, "fill fraction added per drink")
	fs.String("prefs.path", "", "preferences file (default in the user config dir)")
	fs.Int("render.fps", 0, "glass animation frame rate")
	fs.String("snapshot", "", "render the glass to this PNG file and exit")
	fs.Float64("snapshot-level", 0, "fill level of the snapshot")
	fs.Int("snapshot-width", 0, "snapshot width in pixels")
	fs.Int("snapshot-height", 0, "snapshot height in pixels")
	return fs
}

// flagKey maps a flag name to its config key.
func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Load parses args (without the program name) and returns the merged config.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return load(fs)
}

func load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		// only flags the user set override lower layers
		if f.Changed {
			bindErr = v.BindPFlag(flagKey(f.Name), f)
		}
	})
	if bindErr != nil {
		return nil, fmt.Errorf("bind flags: %w", bindErr)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the app cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Sensor.Kind {
	case SensorMock, SensorBLE:
	default:
		errs = append(errs, fmt.Errorf("sensor.kind %q: want %s or %s", c.Sensor.Kind, SensorMock, SensorBLE))
	}
	switch c.Goal.Backend {
	case GoalStatic, GoalRedis:
	case GoalFirebase:
		if c.Goal.FirebaseURL == "" {
			errs = append(errs, errors.New("goal.firebase_url is required for the firebase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("goal.backend %q: want %s, %s or %s", c.Goal.Backend, GoalFirebase, GoalRedis, GoalStatic))
	}
	if c.Goal.UserID == "" {
		errs = append(errs, errors.New("goal.user_id must not be empty"))
	}
	if c.StrideLengthM <= 0 {
		errs = append(errs, fmt.Errorf("stride_length_m must be positive, got %v", c.StrideLengthM))
	}
	if c.Water.Serving <= 0 || c.Water.Serving > 1 {
		errs = append(errs, fmt.Errorf("water.serving must be in (0, 1], got %v", c.Water.Serving))
	}
	if c.Render.FPS <= 0 || c.Render.FPS > 120 {
		errs = append(errs, fmt.Errorf("render.fps must be in [1, 120], got %d", c.Render.FPS))
	}
	if c.Sensor.MockPort < -1 || c.Sensor.MockPort > 65535 {
		errs = append(errs, fmt.Errorf("sensor.mock_port out of range: %d", c.Sensor.MockPort))
	}
	if c.Snapshot != "" && (c.SnapshotWidth <= 0 || c.SnapshotHeight <= 0) {
		errs = append(errs, fmt.Errorf("snapshot size must be positive, got %dx%d", c.SnapshotWidth, c.SnapshotHeight))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", multierr.Combine(errs...))
	}
	return nil
}
