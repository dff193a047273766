package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/cli/config"
	"github.com/secmon-lab/wearsync/pkg/usecase"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// runtimeConfig gathers the flag groups shared by sync and serve
type runtimeConfig struct {
	app     config.App
	repo    config.Repository
	fitbit  config.Fitbit
	lamp    config.Lamp
	archive config.Archive
	sentry  config.Sentry
}

func (x *runtimeConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.app.Flags()...)
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.fitbit.Flags()...)
	flags = append(flags, x.lamp.Flags()...)
	flags = append(flags, x.archive.Flags()...)
	flags = append(flags, x.sentry.Flags()...)
	return flags
}

// build wires the use cases. The returned function releases every
// resource opened on the way and must be called even on error.
func (x *runtimeConfig) build(ctx context.Context, version string) (*usecase.UseCases, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	flush, err := x.sentry.Configure(version)
	if err != nil {
		return nil, closeAll, err
	}
	closers = append(closers, flush)

	appCfg, err := x.app.Load()
	if err != nil {
		return nil, closeAll, goerr.Wrap(err, "failed to load configuration")
	}
	syncCfg, err := appCfg.ToSyncConfig()
	if err != nil {
		return nil, closeAll, err
	}

	repo, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, closeAll, goerr.Wrap(err, "failed to initialize repository")
	}
	closers = append(closers, func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	})

	auth, err := x.fitbit.NewAuthenticator()
	if err != nil {
		return nil, closeAll, err
	}
	fetcher, err := x.fitbit.NewClient(appCfg.Sync.FetchConcurrency)
	if err != nil {
		return nil, closeAll, err
	}

	archiver, closeArchive, err := x.archive.Configure(ctx)
	if err != nil {
		return nil, closeAll, err
	}
	closers = append(closers, closeArchive)

	logging.Default().Info("Configuration loaded",
		"config", x.app,
		"repository", x.repo,
		"fitbit", x.fitbit,
		"lamp", x.lamp,
		"archive", x.archive,
		"sentry", x.sentry,
		"metrics", appCfg.Sync.Metrics,
		"granularity", appCfg.Sync.Granularity,
		"lookback_days", appCfg.Sync.LookbackDays,
		"timezone", appCfg.Sync.Timezone,
	)

	uc := usecase.New(repo, auth, fetcher,
		usecase.WithForwarder(x.lamp.Configure()),
		usecase.WithArchive(archiver),
		usecase.WithSyncConfig(syncCfg),
	)
	return uc, closeAll, nil
}
