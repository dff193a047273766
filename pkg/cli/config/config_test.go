package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/wearsync/pkg/cli/config"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wearsync.toml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0600)).Required()
	return path
}

func TestLoadAppConfiguration(t *testing.T) {
	t.Run("full sync section", func(t *testing.T) {
		path := writeConfig(t, `
[sync]
metrics = ["steps", "sleep"]
granularity = "1h"
lookback_days = 3
timezone = "Asia/Tokyo"
fetch_concurrency = 2
`)
		cfg, err := config.LoadAppConfiguration(path)
		gt.NoError(t, err).Required()
		gt.Array(t, cfg.Sync.Metrics).Length(2)
		gt.Value(t, cfg.Sync.Granularity).Equal("1h")
		gt.Value(t, cfg.Sync.LookbackDays).Equal(3)
		gt.Value(t, cfg.Sync.FetchConcurrency).Equal(2)

		sc, err := cfg.ToSyncConfig()
		gt.NoError(t, err).Required()
		gt.Value(t, sc.Metrics).Equal([]types.Metric{types.MetricSteps, types.MetricSleep})
		gt.Value(t, sc.Granularity).Equal(types.GranularityHour)
		gt.Value(t, sc.LookbackDays).Equal(3)
		gt.Value(t, sc.Location.String()).Equal("Asia/Tokyo")
	})

	t.Run("missing keys take defaults", func(t *testing.T) {
		path := writeConfig(t, "[sync]\ngranularity = \"1d\"\n")
		cfg, err := config.LoadAppConfiguration(path)
		gt.NoError(t, err).Required()
		gt.Array(t, cfg.Sync.Metrics).Length(3)
		gt.Value(t, cfg.Sync.Granularity).Equal("1d")
		gt.Value(t, cfg.Sync.LookbackDays).Equal(config.DefaultLookbackDays)
		gt.Value(t, cfg.Sync.Timezone).Equal("UTC")
		gt.Value(t, cfg.Sync.FetchConcurrency).Equal(config.DefaultFetchConcurrency)
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := config.LoadAppConfiguration(filepath.Join(t.TempDir(), "none.toml"))
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})

	t.Run("broken TOML", func(t *testing.T) {
		path := writeConfig(t, "[sync\n")
		_, err := config.LoadAppConfiguration(path)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	invalid := map[string]string{
		"unknown metric":    "[sync]\nmetrics = [\"weight\"]\n",
		"duplicate metric":  "[sync]\nmetrics = [\"steps\", \"steps\"]\n",
		"unknown gran":      "[sync]\ngranularity = \"5min\"\n",
		"negative lookback": "[sync]\nlookback_days = -1\n",
		"bad timezone":      "[sync]\ntimezone = \"Mars/Olympus\"\n",
		"negative fetchers": "[sync]\nfetch_concurrency = -2\n",
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadAppConfiguration(writeConfig(t, body))
			gt.Error(t, err).Is(config.ErrInvalidConfig)
		})
	}
}

func TestDefaultAppConfig(t *testing.T) {
	sc, err := config.DefaultAppConfig().ToSyncConfig()
	gt.NoError(t, err).Required()
	gt.Value(t, sc.Metrics).Equal(types.AllMetrics())
	gt.Value(t, sc.Granularity).Equal(types.GranularityMinute)
	gt.Value(t, sc.LookbackDays).Equal(7)
	gt.Value(t, sc.Location.String()).Equal("UTC")
}

func TestAppLoad(t *testing.T) {
	cfg, err := config.NewAppForTest("").Load()
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.Sync.Timezone).Equal("UTC")

	path := writeConfig(t, "[sync]\nlookback_days = 14\n")
	cfg, err = config.NewAppForTest(path).Load()
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.Sync.LookbackDays).Equal(14)
}

func TestFitbit(t *testing.T) {
	t.Run("authenticator requires credentials", func(t *testing.T) {
		_, err := config.NewFitbitForTest("", "secret", "http://localhost/cb", 2).NewAuthenticator()
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("authenticator builds consent URL", func(t *testing.T) {
		auth, err := config.NewFitbitForTest("client", "secret", "http://localhost/cb", 2).NewAuthenticator()
		gt.NoError(t, err).Required()
		u := auth.AuthCodeURL("state-1")
		gt.Bool(t, strings.HasPrefix(u, "http://127.0.0.1/authorize")).True()
		gt.String(t, u).Contains("client_id=client")
		gt.String(t, u).Contains("scope=activity+sleep")
	})

	t.Run("rate must be positive", func(t *testing.T) {
		_, err := config.NewFitbitForTest("client", "secret", "", 0).NewClient(4)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("client", func(t *testing.T) {
		svc, err := config.NewFitbitForTest("client", "secret", "", 2).NewClient(4)
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

func TestLamp(t *testing.T) {
	gt.Bool(t, config.NewLampForTest("", "").Configure().Enabled()).False()
	gt.Bool(t, config.NewLampForTest("https://lamp.example.com", "Basic abc").Configure().Enabled()).True()
}
