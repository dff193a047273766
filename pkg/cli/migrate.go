package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/cli/config"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the connection table in the SQL backend",
		Flags:   repoCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Migrate configuration", "repository", repoCfg)

			if repoCfg.Backend() != config.BackendPostgres {
				logger.Info("Nothing to migrate for backend", "backend", repoCfg.Backend())
				return nil
			}

			db, err := repoCfg.Postgres(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to connect to postgres")
			}
			defer func() {
				if err := db.Close(); err != nil {
					logger.Error("failed to close postgres", "error", err.Error())
				}
			}()

			if err := db.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply migrations")
			}
			logger.Info("Migrations applied successfully")
			return nil
		},
	}
}
