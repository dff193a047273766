package lamp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/metrics"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
	"github.com/secmon-lab/wearsync/pkg/utils/safe"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	DefaultTimeout = 30 * time.Second
	breakerName    = "lamp-sensor-event"
	sensorPrefix   = "fitbit_"
)

// ErrDeliveryFailed is returned when a sensor event was not accepted
var ErrDeliveryFailed = goerr.New("sensor event delivery failed")

// Service delivers points to the ingestion service, one sensor event per point
type Service interface {
	Forward(ctx context.Context, userID string, point *model.Point) error
	// Enabled reports whether a destination is configured. A disabled
	// service drops every point.
	Enabled() bool
}

// SensorEvent is the request body of POST /participant/{id}/sensor_event
type SensorEvent struct {
	// Timestamp is the forwarding time in epoch milliseconds
	Timestamp int64          `json:"timestamp"`
	Sensor    string         `json:"sensor"`
	Data      map[string]any `json:"data"`
}

type client struct {
	baseURL    string
	auth       string
	httpClient *http.Client
	now        func() time.Time

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

// Option configures the forwarder
type Option func(*client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithClock replaces the source of event timestamps
func WithClock(now func() time.Time) Option {
	return func(c *client) {
		c.now = now
	}
}

// New creates a forwarder. auth is sent verbatim as the Authorization header,
// e.g. "Basic xxx". An empty baseURL or auth yields a disabled forwarder.
func New(baseURL, auth string, opts ...Option) Service {
	c := &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		auth:       auth,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		now:        time.Now,
		breakers:   make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// breaker returns the circuit breaker of userID. Each participant has its
// own so a failing endpoint of one never rejects events of another.
func (c *client) breaker(userID string) *gobreaker.CircuitBreaker[struct{}] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[userID]; ok {
		return cb
	}

	name := breakerName + "/" + userID
	metrics.BreakerState.WithLabelValues(name).Set(0)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Default().Warn("Circuit breaker state changed",
				"name", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	c.breakers[userID] = cb
	return cb
}

// statusError carries the HTTP status of a rejected event
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "unexpected status " + http.StatusText(e.code)
}

// isBreakerSuccess counts only transport errors and 5xx as breaker failures
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code < http.StatusInternalServerError
	}
	return false
}

func (c *client) Enabled() bool {
	return c.baseURL != "" && c.auth != ""
}

// Forward implements Service
func (c *client) Forward(ctx context.Context, userID string, point *model.Point) error {
	sensor := sensorPrefix + point.Metric.String()

	if !c.Enabled() {
		logging.From(ctx).Info("Ingestion destination not configured, dropping point",
			"user_id", userID, "sensor", sensor, "timestamp", point.Timestamp)
		metrics.PointsForwarded.WithLabelValues(point.Metric.String(), "skipped").Inc()
		return nil
	}

	_, err := c.breaker(userID).Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, userID, &SensorEvent{
			Timestamp: c.now().UnixMilli(),
			Sensor:    sensor,
			Data:      point.Data(),
		})
	})
	if err != nil {
		metrics.PointsForwarded.WithLabelValues(point.Metric.String(), "failure").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return goerr.Wrap(errors.Join(ErrDeliveryFailed, err), "circuit open, event rejected",
				goerr.V("user_id", userID), goerr.V("sensor", sensor))
		}
		return err
	}

	metrics.PointsForwarded.WithLabelValues(point.Metric.String(), "success").Inc()
	return nil
}

func (c *client) post(ctx context.Context, userID string, ev *SensorEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal sensor event", goerr.V("sensor", ev.Sensor))
	}

	endpoint := c.baseURL + "/participant/" + url.PathEscape(userID) + "/sensor_event"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("url", endpoint))
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(errors.Join(ErrDeliveryFailed, err), "failed to post sensor event",
			goerr.V("user_id", userID), goerr.V("sensor", ev.Sensor))
	}
	defer safe.DrainClose(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return goerr.Wrap(errors.Join(ErrDeliveryFailed, &statusError{code: resp.StatusCode}), "ingestion service rejected sensor event",
			goerr.V("user_id", userID),
			goerr.V("sensor", ev.Sensor),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(msg)))
	}

	logging.From(ctx).Debug("Sensor event posted", "user_id", userID, "sensor", ev.Sensor, "status", resp.StatusCode)
	return nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
