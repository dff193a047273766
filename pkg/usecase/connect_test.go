package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/repository/memory"
	"github.com/secmon-lab/wearsync/pkg/service/fitbit"
	"github.com/secmon-lab/wearsync/pkg/usecase"
)

func exchangeOK(ctx context.Context, code string) (*model.Credentials, error) {
	return &model.Credentials{
		AccessToken:    "access-" + code,
		RefreshToken:   "refresh-" + code,
		ExpiresAt:      time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC),
		Scope:          "activity sleep",
		TokenType:      "Bearer",
		ProviderUserID: "ABC123",
	}, nil
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a new connection without cursor", func(t *testing.T) {
		repo := memory.New()
		fetcher := &mockFetcher{Profile: &fitbit.Profile{EncodedID: "ABC123", DisplayName: "Blue"}}
		uc := usecase.New(repo, &mockAuth{ExchangeFunc: exchangeOK}, fetcher).Connect

		conn, err := uc.HandleCallback(ctx, "U1", "code1")
		gt.NoError(t, err).Required()
		gt.Value(t, conn.AccessToken).Equal("access-code1")

		stored := getConnection(t, repo, "U1")
		gt.Value(t, stored.ProviderUserID).Equal("ABC123")
		gt.Value(t, stored.RefreshToken).Equal("refresh-code1")
		gt.Value(t, stored.Scope).Equal("activity sleep")
		gt.Value(t, stored.LastSyncedAt).Nil()
	})

	t.Run("reconnect keeps cursor", func(t *testing.T) {
		repo := memory.New()
		cursor := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
		existing := newConnection("U1")
		existing.LastSyncedAt = &cursor
		putConnection(t, repo, existing)

		uc := usecase.New(repo, &mockAuth{ExchangeFunc: exchangeOK}, &mockFetcher{}).Connect
		_, err := uc.HandleCallback(ctx, "U1", "code2")
		gt.NoError(t, err).Required()

		stored := getConnection(t, repo, "U1")
		gt.Value(t, stored.AccessToken).Equal("access-code2")
		gt.Value(t, stored.LastSyncedAt).NotNil()
		gt.Value(t, stored.LastSyncedAt.Equal(cursor)).Equal(true)
	})

	t.Run("provider id falls back to profile", func(t *testing.T) {
		repo := memory.New()
		auth := &mockAuth{ExchangeFunc: func(ctx context.Context, code string) (*model.Credentials, error) {
			return &model.Credentials{AccessToken: "a", RefreshToken: "r"}, nil
		}}
		fetcher := &mockFetcher{Profile: &fitbit.Profile{EncodedID: "FROM-PROFILE"}}

		_, err := usecase.New(repo, auth, fetcher).Connect.HandleCallback(ctx, "U1", "c")
		gt.NoError(t, err).Required()
		gt.Value(t, getConnection(t, repo, "U1").ProviderUserID).Equal("FROM-PROFILE")
	})

	t.Run("rejected code", func(t *testing.T) {
		auth := &mockAuth{ExchangeFunc: func(ctx context.Context, code string) (*model.Credentials, error) {
			return nil, fitbit.ErrTokenRejected
		}}
		_, err := usecase.New(memory.New(), auth, &mockFetcher{}).Connect.HandleCallback(ctx, "U1", "bad")
		gt.Error(t, err).Is(usecase.ErrAuth)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := usecase.New(memory.New(), &mockAuth{ExchangeFunc: exchangeOK}, &mockFetcher{}).Connect.HandleCallback(ctx, "U1", "")
		gt.Error(t, err)
	})
}

func TestState(t *testing.T) {
	state := usecase.NewState("user@example.com")
	gt.Bool(t, strings.Contains(state, ".")).True()
	gt.Value(t, usecase.NewState("user@example.com")).NotEqual(state)

	userID, err := usecase.UserIDFromState(state, state)
	gt.NoError(t, err).Required()
	gt.Value(t, userID).Equal("user@example.com")

	_, err = usecase.UserIDFromState(state, "other")
	gt.Error(t, err).Is(usecase.ErrInvalidState)

	_, err = usecase.UserIDFromState("", "")
	gt.Error(t, err).Is(usecase.ErrInvalidState)

	_, err = usecase.UserIDFromState("no-dot", "no-dot")
	gt.Error(t, err).Is(usecase.ErrInvalidState)
}

func TestAuthURL(t *testing.T) {
	uc := usecase.New(memory.New(), &mockAuth{}, &mockFetcher{}).Connect
	gt.String(t, uc.AuthURL("s1")).Contains("state=s1")
}
