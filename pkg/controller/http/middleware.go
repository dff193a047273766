package http

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
)

// requestLogger puts a logger tagged with the request ID into the request context
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.From(r.Context())
		if id := middleware.GetReqID(r.Context()); id != "" {
			logger = logger.With("request_id", id)
		}
		next.ServeHTTP(w, r.WithContext(logging.With(r.Context(), logger)))
	})
}
