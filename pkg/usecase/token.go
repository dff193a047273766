package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/interfaces"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/metrics"
	"github.com/secmon-lab/wearsync/pkg/service/fitbit"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
)

// TokenUseCase keeps connection access tokens usable
type TokenUseCase struct {
	repo interfaces.Repository
	auth fitbit.Authenticator
}

func NewTokenUseCase(repo interfaces.Repository, auth fitbit.Authenticator) *TokenUseCase {
	return &TokenUseCase{
		repo: repo,
		auth: auth,
	}
}

// IsExpired reports whether the access token of conn is unusable at now.
// A zero ExpiresAt counts as expired.
func IsExpired(conn *model.Connection, now time.Time) bool {
	if conn.ExpiresAt.IsZero() {
		return true
	}
	return !now.UTC().Before(conn.ExpiresAt.UTC())
}

// Refresh performs a refresh grant for conn and persists the new tokens
// before returning. conn is updated in place. A rejected grant yields
// ErrAuth and leaves the stored record untouched.
func (uc *TokenUseCase) Refresh(ctx context.Context, conn *model.Connection) error {
	cred, err := uc.auth.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		if errors.Is(err, fitbit.ErrTokenRejected) {
			metrics.TokenRefresh.WithLabelValues("rejected").Inc()
			return goerr.Wrap(errors.Join(ErrAuth, err), "refresh token rejected", goerr.V(UserIDKey, conn.UserID))
		}
		metrics.TokenRefresh.WithLabelValues("error").Inc()
		return goerr.Wrap(errors.Join(ErrUpstream, err), "token refresh failed", goerr.V(UserIDKey, conn.UserID))
	}
	metrics.TokenRefresh.WithLabelValues("success").Inc()

	updated := conn.Clone()
	updated.Apply(cred)
	if err := uc.repo.Connection().Put(ctx, updated); err != nil {
		return goerr.Wrap(err, "failed to persist refreshed tokens", goerr.V(UserIDKey, conn.UserID))
	}
	*conn = *updated

	logging.From(ctx).Info("Access token refreshed", "user_id", conn.UserID, "expires_at", conn.ExpiresAt)
	return nil
}

// EnsureFresh refreshes conn when its token is expired at now
func (uc *TokenUseCase) EnsureFresh(ctx context.Context, conn *model.Connection, now time.Time) (bool, error) {
	if !IsExpired(conn, now) {
		return false, nil
	}
	if err := uc.Refresh(ctx, conn); err != nil {
		return false, err
	}
	return true, nil
}
