package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/interfaces"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/service/fitbit"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
)

// ConnectUseCase links a user to a Fitbit account through the
// authorization code flow
type ConnectUseCase struct {
	repo    interfaces.Repository
	auth    fitbit.Authenticator
	fetcher fitbit.Service
}

func NewConnectUseCase(repo interfaces.Repository, auth fitbit.Authenticator, fetcher fitbit.Service) *ConnectUseCase {
	return &ConnectUseCase{
		repo:    repo,
		auth:    auth,
		fetcher: fetcher,
	}
}

// AuthURL returns the consent page URL for state
func (uc *ConnectUseCase) AuthURL(state string) string {
	return uc.auth.AuthCodeURL(state)
}

// HandleCallback exchanges code and stores the connection for userID. An
// existing connection keeps its cursor and creation time.
func (uc *ConnectUseCase) HandleCallback(ctx context.Context, userID, code string) (*model.Connection, error) {
	if userID == "" {
		return nil, goerr.New("user_id is required")
	}
	if code == "" {
		return nil, goerr.New("authorization code is required", goerr.V(UserIDKey, userID))
	}

	cred, err := uc.auth.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, fitbit.ErrTokenRejected) {
			return nil, goerr.Wrap(errors.Join(ErrAuth, err), "authorization code rejected", goerr.V(UserIDKey, userID))
		}
		return nil, goerr.Wrap(errors.Join(ErrUpstream, err), "failed to exchange authorization code", goerr.V(UserIDKey, userID))
	}

	conn, err := uc.repo.Connection().Get(ctx, userID)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		conn = &model.Connection{UserID: userID}
	case err != nil:
		return nil, goerr.Wrap(err, "failed to get connection", goerr.V(UserIDKey, userID))
	}
	conn.Apply(cred)

	logger := logging.From(ctx).With(UserIDKey, userID)
	profile, err := uc.fetcher.GetProfile(ctx, conn.AccessToken)
	if err != nil {
		logger.Warn("Failed to get Fitbit profile", "error", err.Error())
	} else {
		if conn.ProviderUserID == "" {
			conn.ProviderUserID = profile.EncodedID
		}
		logger.Info("Fitbit profile", "display_name", profile.DisplayName, "timezone", profile.Timezone)
	}

	if err := uc.repo.Connection().Put(ctx, conn); err != nil {
		return nil, goerr.Wrap(err, "failed to store connection", goerr.V(UserIDKey, userID))
	}

	logger.Info("Fitbit account connected", "provider_user_id", conn.ProviderUserID, "scope", conn.Scope)
	return conn, nil
}

// NewState returns an OAuth state value carrying userID and a random nonce
func NewState(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID)) + "." + uuid.NewString()
}

// UserIDFromState checks state against the value issued to the browser and
// returns the user it was issued for
func UserIDFromState(state, issued string) (string, error) {
	if state == "" || state != issued {
		return "", goerr.Wrap(ErrInvalidState, "state does not match")
	}

	encoded, _, ok := strings.Cut(state, ".")
	if !ok {
		return "", goerr.Wrap(ErrInvalidState, "malformed state")
	}
	userID, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(userID) == 0 {
		return "", goerr.Wrap(ErrInvalidState, "malformed state")
	}
	return string(userID), nil
}
