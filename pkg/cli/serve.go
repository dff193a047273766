package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/wearsync/pkg/controller/http"
	"github.com/secmon-lab/wearsync/pkg/service/worker"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var rt runtimeConfig
	var addr string
	var interval time.Duration

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("WEARSYNC_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "sync-interval",
			Usage:       "Interval between background sync runs (0 disables the worker)",
			Value:       time.Hour,
			Sources:     cli.EnvVars("WEARSYNC_SYNC_INTERVAL"),
			Destination: &interval,
		},
	}
	flags = append(flags, rt.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the connect endpoints and the periodic sync worker",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := rt.build(ctx, version)
			defer closer()
			if err != nil {
				return err
			}

			var syncWorker *worker.SyncWorker
			if interval > 0 {
				syncWorker = worker.NewSyncWorker(uc.Sync, interval)
				if err := syncWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start sync worker")
				}
			} else {
				logging.Default().Info("Background sync disabled")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(httpctrl.WithConnect(uc.Connect)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "sync_interval", interval)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if syncWorker != nil {
					syncWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop the worker first so no run starts against a closing store
				if syncWorker != nil {
					syncWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
