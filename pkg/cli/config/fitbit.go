package config

import (
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/service/fitbit"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

type Fitbit struct {
	clientID     string
	clientSecret string
	redirectURL  string
	scopes       string
	apiURL       string
	tokenURL     string
	authURL      string
	rate         float64
}

func (x *Fitbit) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "fitbit-client-id",
			Usage:       "Fitbit OAuth2 client ID",
			Category:    "Fitbit",
			Destination: &x.clientID,
			Sources:     cli.EnvVars("WEARSYNC_FITBIT_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:        "fitbit-client-secret",
			Usage:       "Fitbit OAuth2 client secret",
			Category:    "Fitbit",
			Destination: &x.clientSecret,
			Sources:     cli.EnvVars("WEARSYNC_FITBIT_CLIENT_SECRET"),
		},
		&cli.StringFlag{
			Name:        "fitbit-redirect-url",
			Usage:       "OAuth2 redirect URL registered for the app (e.g. https://example.com/oauth/fitbit/callback)",
			Category:    "Fitbit",
			Destination: &x.redirectURL,
			Sources:     cli.EnvVars("WEARSYNC_FITBIT_REDIRECT_URL"),
		},
		&cli.StringFlag{
			Name:        "fitbit-scopes",
			Usage:       "Space separated OAuth2 scopes",
			Category:    "Fitbit",
			Value:       strings.Join(fitbit.DefaultScopes, " "),
			Destination: &x.scopes,
			Sources:     cli.EnvVars("WEARSYNC_FITBIT_SCOPES"),
		},
		&cli.StringFlag{
			Name:        "fitbit-api-url",
			Usage:       "Fitbit Web API base URL",
			Category:    "Fitbit",
			Value:       fitbit.DefaultAPIURL,
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("WEARSYNC_FITBIT_API_URL"),
		},
		&cli.StringFlag{
			Name:        "fitbit-token-url",
			Usage:       "Fitbit OAuth2 token endpoint",
			Category:    "Fitbit",
			Value:       fitbit.DefaultTokenURL,
			Destination: &x.tokenURL,
			Sources:     cli.EnvVars("WEARSYNC_FITBIT_TOKEN_URL"),
		},
		&cli.StringFlag{
			Name:        "fitbit-auth-url",
			Usage:       "Fitbit OAuth2 authorization endpoint",
			Category:    "Fitbit",
			Value:       fitbit.DefaultAuthURL,
			Destination: &x.authURL,
			Sources:     cli.EnvVars("WEARSYNC_FITBIT_AUTH_URL"),
		},
		&cli.FloatFlag{
			Name:        "fitbit-rate",
			Usage:       "Maximum Fitbit API requests per second",
			Category:    "Fitbit",
			Value:       float64(fitbit.DefaultRate),
			Destination: &x.rate,
			Sources:     cli.EnvVars("WEARSYNC_FITBIT_RATE"),
		},
	}
}

func (x Fitbit) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("client-id.len", len(x.clientID)),
		slog.Int("client-secret.len", len(x.clientSecret)),
		slog.String("redirect-url", x.redirectURL),
		slog.String("scopes", x.scopes),
		slog.String("api-url", x.apiURL),
		slog.Float64("rate", x.rate),
	)
}

// NewAuthenticator returns the OAuth2 grant client. Client ID and secret are required.
func (x *Fitbit) NewAuthenticator() (*fitbit.OAuth, error) {
	if x.clientID == "" || x.clientSecret == "" {
		return nil, goerr.Wrap(ErrMissingFlag, "fitbit-client-id and fitbit-client-secret are required",
			goerr.V(FlagKey, "fitbit-client-id"))
	}

	return fitbit.NewOAuth(x.clientID, x.clientSecret, x.redirectURL, strings.Fields(x.scopes),
		fitbit.WithEndpoint(x.authURL, x.tokenURL)), nil
}

// NewClient returns the Web API client fetching up to concurrency day pages at once
func (x *Fitbit) NewClient(concurrency int) (fitbit.Service, error) {
	if x.rate <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "fitbit-rate must be positive", goerr.V("rate", x.rate))
	}

	burst := max(concurrency, 1)
	return fitbit.New(
		fitbit.WithBaseURL(x.apiURL),
		fitbit.WithRate(rate.Limit(x.rate), burst),
		fitbit.WithConcurrency(concurrency),
	), nil
}
