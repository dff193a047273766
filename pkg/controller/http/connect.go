package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/usecase"
	"github.com/secmon-lab/wearsync/pkg/utils/errutil"
)

const stateCookieName = "oauth_state"

type ConnectUseCase interface {
	AuthURL(state string) string
	HandleCallback(ctx context.Context, userID, code string) (*model.Connection, error)
}

type connectedResponse struct {
	Status         string `json:"status"`
	UserID         string `json:"user_id"`
	ProviderUserID string `json:"provider_user_id"`
}

// connectHandler starts the authorization code flow for ?user_id
func connectHandler(uc ConnectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("missing user_id"), http.StatusBadRequest)
			return
		}

		state := usecase.NewState(userID)

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   600, // 10 minutes
		})

		http.Redirect(w, r, uc.AuthURL(state), http.StatusTemporaryRedirect)
	}
}

// callbackHandler completes the flow and stores the connection
func callbackHandler(uc ConnectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		stateCookie, err := r.Cookie(stateCookieName)
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "missing state cookie"), http.StatusBadRequest)
			return
		}

		userID, err := usecase.UserIDFromState(r.URL.Query().Get("state"), stateCookie.Value)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})

		code := r.URL.Query().Get("code")
		if code == "" {
			errutil.HandleHTTP(ctx, w, goerr.New("missing authorization code"), http.StatusBadRequest)
			return
		}

		conn, err := uc.HandleCallback(ctx, userID, code)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, usecase.ErrAuth):
				status = http.StatusBadRequest
			case errors.Is(err, usecase.ErrUpstream):
				status = http.StatusBadGateway
			}
			errutil.HandleHTTP(ctx, w, err, status)
			return
		}

		data, err := json.Marshal(connectedResponse{
			Status:         "connected",
			UserID:         conn.UserID,
			ProviderUserID: conn.ProviderUserID,
		})
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data) //nolint:errcheck // header already committed
	}
}
