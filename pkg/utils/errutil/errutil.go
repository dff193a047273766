package errutil

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
)

// Handle logs err with msg and the goerr values and stack attached to it, then
// reports it to Sentry when a client is configured. attrs are appended to the
// log record, typically the connection identifier.
func Handle(ctx context.Context, err error, msg string, attrs ...any) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)

	args := append([]any{"error", err.Error()}, attrs...)
	var ge *goerr.Error
	if errors.As(err, &ge) {
		args = append(args, "values", ge.Values(), "stack", ge.Stacks())
	}
	logger.Error(msg, args...)

	report(ctx, err)
}

// HandleHTTP logs the error and writes an HTTP error response.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	Handle(ctx, err, "HTTP error", "status", statusCode)
	http.Error(w, err.Error(), statusCode)
}

func report(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}
	hub.CaptureException(err)
}
