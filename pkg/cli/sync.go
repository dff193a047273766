package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdSync(version string) *cli.Command {
	var rt runtimeConfig
	var userID string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user-id",
			Aliases:     []string{"u"},
			Usage:       "Sync only this participant instead of every stored connection",
			Sources:     cli.EnvVars("WEARSYNC_USER_ID"),
			Destination: &userID,
		},
	}
	flags = append(flags, rt.Flags()...)

	return &cli.Command{
		Name:  "sync",
		Usage: "Run one sync pass and exit",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := rt.build(ctx, version)
			defer closer()
			if err != nil {
				return err
			}

			if userID != "" {
				report, err := uc.Sync.RunUser(ctx, userID)
				if err != nil {
					return goerr.Wrap(err, "failed to sync user", goerr.V("user_id", userID))
				}
				logConnectionReport(report)
				if report.Result != model.SyncResultSynced {
					return goerr.New("sync did not complete", goerr.V("user_id", userID), goerr.V("result", report.Result))
				}
				return nil
			}

			report, err := uc.Sync.RunOnce(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to run sync")
			}
			for _, r := range report.Connections {
				logConnectionReport(r)
			}
			return nil
		},
	}
}

func logConnectionReport(r *model.ConnectionReport) {
	args := []any{
		"user_id", r.UserID,
		"result", r.Result,
		"window_start", r.WindowStart,
		"window_end", r.WindowEnd,
		"forwarded", r.PointsForwarded,
		"dropped", r.PointsDropped,
		"failed", r.DeliveriesFailed,
	}
	if r.Error != nil {
		args = append(args, "error", r.Error.Error())
	}
	logging.Default().Info("Connection report", args...)
}
