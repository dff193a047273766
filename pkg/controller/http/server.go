package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
)

type Server struct {
	router    *chi.Mux
	connectUC ConnectUseCase
	metrics   http.Handler
}

type Options func(*Server)

// WithConnect enables the Fitbit connect and callback endpoints
func WithConnect(uc ConnectUseCase) Options {
	return func(s *Server) {
		s.connectUC = uc
	}
}

// WithMetricsHandler replaces the /metrics handler
func WithMetricsHandler(h http.Handler) Options {
	return func(s *Server) {
		s.metrics = h
	}
}

func New(opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:  r,
		metrics: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", indexHandler)
	r.Get("/health", healthHandler)
	r.Handle("/metrics", s.metrics)

	if s.connectUC != nil {
		r.Get("/connect/fitbit", connectHandler(s.connectUC))
		r.Get("/oauth/fitbit/callback", callbackHandler(s.connectUC))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("wearsync is running. Try /connect/fitbit?user_id=demo\n"))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
