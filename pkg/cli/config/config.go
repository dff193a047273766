package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
	"github.com/secmon-lab/wearsync/pkg/usecase"
	"github.com/urfave/cli/v3"
)

const (
	DefaultLookbackDays     = 7
	DefaultTimezone         = "UTC"
	DefaultFetchConcurrency = 4
)

// AppConfig represents the application configuration file
type AppConfig struct {
	Sync SyncSection `toml:"sync"`
}

// SyncSection controls what each sync run fetches
type SyncSection struct {
	Metrics          []string `toml:"metrics"`
	Granularity      string   `toml:"granularity"`
	LookbackDays     int      `toml:"lookback_days"`
	Timezone         string   `toml:"timezone"`
	FetchConcurrency int      `toml:"fetch_concurrency"`
}

// DefaultAppConfig returns the configuration used when no file is given
func DefaultAppConfig() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

func (a *AppConfig) applyDefaults() {
	s := &a.Sync
	if len(s.Metrics) == 0 {
		for _, m := range types.AllMetrics() {
			s.Metrics = append(s.Metrics, m.String())
		}
	}
	if s.Granularity == "" {
		s.Granularity = types.GranularityMinute.String()
	}
	if s.LookbackDays == 0 {
		s.LookbackDays = DefaultLookbackDays
	}
	if s.Timezone == "" {
		s.Timezone = DefaultTimezone
	}
	if s.FetchConcurrency == 0 {
		s.FetchConcurrency = DefaultFetchConcurrency
	}
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	seen := make(map[string]bool)
	for _, m := range a.Sync.Metrics {
		if _, err := types.ParseMetric(m); err != nil {
			return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid sync.metrics entry")
		}
		if seen[m] {
			return goerr.Wrap(ErrInvalidConfig, "duplicate metric", goerr.V("metric", m))
		}
		seen[m] = true
	}

	if _, err := types.ParseGranularity(a.Sync.Granularity); err != nil {
		return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid sync.granularity")
	}
	if a.Sync.LookbackDays < 1 {
		return goerr.Wrap(ErrInvalidConfig, "sync.lookback_days must be positive",
			goerr.V("lookback_days", a.Sync.LookbackDays))
	}
	if a.Sync.FetchConcurrency < 1 {
		return goerr.Wrap(ErrInvalidConfig, "sync.fetch_concurrency must be positive",
			goerr.V("fetch_concurrency", a.Sync.FetchConcurrency))
	}
	if _, err := time.LoadLocation(a.Sync.Timezone); err != nil {
		return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid sync.timezone",
			goerr.V("timezone", a.Sync.Timezone))
	}

	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file.
// Keys missing from the file take their default values.
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// ToSyncConfig converts the sync section into usecase settings
func (a *AppConfig) ToSyncConfig() (usecase.SyncConfig, error) {
	if err := a.Validate(); err != nil {
		return usecase.SyncConfig{}, err
	}

	metrics := make([]types.Metric, len(a.Sync.Metrics))
	for i, m := range a.Sync.Metrics {
		metrics[i] = types.Metric(m)
	}
	loc, err := time.LoadLocation(a.Sync.Timezone)
	if err != nil {
		return usecase.SyncConfig{}, goerr.Wrap(err, "failed to load timezone")
	}

	return usecase.SyncConfig{
		Metrics:      metrics,
		Granularity:  types.Granularity(a.Sync.Granularity),
		LookbackDays: a.Sync.LookbackDays,
		Location:     loc,
	}, nil
}

// App holds the --config flag
type App struct {
	path string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML configuration file (defaults apply if omitted)",
			Destination: &x.path,
			Sources:     cli.EnvVars("WEARSYNC_CONFIG"),
		},
	}
}

func (x App) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Load reads the configuration file, or returns defaults when no path is set
func (x *App) Load() (*AppConfig, error) {
	if x.path == "" {
		return DefaultAppConfig(), nil
	}
	return LoadAppConfiguration(x.path)
}
