package config

import (
	"log/slog"

	"github.com/secmon-lab/wearsync/pkg/service/lamp"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Lamp holds the downstream ingestion destination
type Lamp struct {
	baseURL string
	auth    string
}

func (x *Lamp) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "lamp-base-url",
			Usage:       "Ingestion API base URL (e.g. https://api.lamp.digital)",
			Category:    "Destination",
			Destination: &x.baseURL,
			Sources:     cli.EnvVars("WEARSYNC_LAMP_BASE_URL"),
		},
		&cli.StringFlag{
			Name:        "lamp-auth",
			Usage:       "Authorization header value sent with every event (e.g. \"Basic xxx\")",
			Category:    "Destination",
			Destination: &x.auth,
			Sources:     cli.EnvVars("WEARSYNC_LAMP_AUTH"),
		},
	}
}

func (x Lamp) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base-url", x.baseURL),
		slog.Int("auth.len", len(x.auth)),
	)
}

// Configure returns the forwarder. Without a base URL or credential every
// point is dropped.
func (x *Lamp) Configure() lamp.Service {
	svc := lamp.New(x.baseURL, x.auth)
	if !svc.Enabled() {
		logging.Default().Warn("lamp-base-url or lamp-auth not set, points will be dropped")
	}
	return svc
}
