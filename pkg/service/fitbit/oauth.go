package fitbit

import (
	"context"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL  = "https://www.fitbit.com/oauth2/authorize"
	DefaultTokenURL = "https://api.fitbit.com/oauth2/token"

	// consentLifetime is the token lifetime requested on the consent screen
	consentLifetime = "604800"
)

// DefaultScopes are requested when none are configured
var DefaultScopes = []string{"activity", "sleep", "heartrate", "profile"}

// OAuth implements Authenticator with golang.org/x/oauth2
type OAuth struct {
	cfg        *oauth2.Config
	httpClient *http.Client
}

// OAuthOption configures OAuth
type OAuthOption func(*OAuth)

// WithEndpoint overrides the authorize and token URLs
func WithEndpoint(authURL, tokenURL string) OAuthOption {
	return func(o *OAuth) {
		if authURL != "" {
			o.cfg.Endpoint.AuthURL = authURL
		}
		if tokenURL != "" {
			o.cfg.Endpoint.TokenURL = tokenURL
		}
	}
}

// WithOAuthHTTPClient replaces the HTTP client used for grants
func WithOAuthHTTPClient(hc *http.Client) OAuthOption {
	return func(o *OAuth) {
		o.httpClient = hc
	}
}

// NewOAuth creates an Authenticator for the given application credentials
func NewOAuth(clientID, clientSecret, redirectURL string, scopes []string, opts ...OAuthOption) *OAuth {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	o := &OAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   DefaultAuthURL,
				TokenURL:  DefaultTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// AuthCodeURL returns the consent page URL carrying state
func (o *OAuth) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("expires_in", consentLifetime),
	)
}

// Exchange trades an authorization code for credentials
func (o *OAuth) Exchange(ctx context.Context, code string) (*model.Credentials, error) {
	tok, err := o.cfg.Exchange(o.withClient(ctx), code)
	if err != nil {
		return nil, classifyGrantError(err, "failed to exchange authorization code")
	}
	return toCredentials(tok), nil
}

// Refresh performs a refresh_token grant
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*model.Credentials, error) {
	if refreshToken == "" {
		return nil, goerr.Wrap(ErrTokenRejected, "refresh token is empty")
	}

	// An empty access token makes the token source go straight to the grant.
	src := o.cfg.TokenSource(o.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, classifyGrantError(err, "failed to refresh access token")
	}
	return toCredentials(tok), nil
}

func (o *OAuth) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
}

func classifyGrantError(err error, msg string) error {
	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) {
		return goerr.Wrap(err, msg)
	}

	status := 0
	if rErr.Response != nil {
		status = rErr.Response.StatusCode
	}
	kind := ErrUnexpectedStatus
	if isRejection(status, rErr.ErrorCode) {
		kind = ErrTokenRejected
	}
	return goerr.Wrap(errors.Join(kind, err), msg,
		goerr.V("status", status),
		goerr.V("error_code", rErr.ErrorCode))
}

// isRejection reports whether the authorization server refused the grant
// itself. Server errors are outages, not revocations.
func isRejection(status int, errorCode string) bool {
	switch errorCode {
	case "invalid_grant", "invalid_token":
		return true
	}
	return status == http.StatusBadRequest || status == http.StatusUnauthorized
}

func toCredentials(tok *oauth2.Token) *model.Credentials {
	cred := &model.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry.UTC(),
	}
	if v, ok := tok.Extra("user_id").(string); ok {
		cred.ProviderUserID = v
	}
	if v, ok := tok.Extra("scope").(string); ok {
		cred.Scope = v
	}
	return cred
}
