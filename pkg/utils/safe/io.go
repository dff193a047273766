package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/wearsync/pkg/utils/logging"
)

// Close closes closer and logs a failure. A nil closer is ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// DrainClose reads the rest of an HTTP response body before closing it so the
// underlying connection can be reused.
func DrainClose(ctx context.Context, body io.ReadCloser) {
	if body == nil {
		return
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		logging.From(ctx).Debug("Failed to drain body", slog.Any("error", err))
	}
	Close(ctx, body)
}
