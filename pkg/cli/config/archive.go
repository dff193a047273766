package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/service/archive"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Archive holds the optional raw page archive settings
type Archive struct {
	bucket string
	prefix string
}

func (x *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket for raw Fitbit responses (disabled if empty)",
			Category:    "Archive",
			Destination: &x.bucket,
			Sources:     cli.EnvVars("WEARSYNC_ARCHIVE_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix inside the archive bucket",
			Category:    "Archive",
			Value:       "fitbit",
			Destination: &x.prefix,
			Sources:     cli.EnvVars("WEARSYNC_ARCHIVE_PREFIX"),
		},
	}
}

func (x Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// Configure returns the archive and a function releasing it
func (x *Archive) Configure(ctx context.Context) (archive.Service, func(), error) {
	if x.bucket == "" {
		return archive.Noop(), func() {}, nil
	}

	gcs, err := archive.NewGCS(ctx, x.bucket, x.prefix)
	if err != nil {
		return nil, func() {}, goerr.Wrap(err, "failed to initialize archive")
	}
	logging.Default().Info("Raw page archive enabled", "bucket", x.bucket, "prefix", x.prefix)

	return gcs, func() {
		if err := gcs.Close(); err != nil {
			logging.Default().Error("failed to close archive", "error", err.Error())
		}
	}, nil
}
