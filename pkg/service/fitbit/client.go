package fitbit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
	"github.com/secmon-lab/wearsync/pkg/utils/safe"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIURL is the Fitbit Web API base URL
	DefaultAPIURL = "https://api.fitbit.com"
	// DefaultTimeout bounds every upstream request
	DefaultTimeout = 30 * time.Second
	// DefaultConcurrency is the number of day pages fetched in parallel
	DefaultConcurrency = 4
	// DefaultRate is the sustained request rate per process
	DefaultRate = rate.Limit(2)

	dateLayout     = "2006-01-02"
	maxErrorBodyLn = 512
)

// client implements Service interface
type client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	concurrency int
}

// Option is a functional option for client configuration
type Option func(*client)

// WithBaseURL overrides the API base URL
func WithBaseURL(url string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRate sets the request rate limit. rate.Inf disables limiting.
func WithRate(limit rate.Limit, burst int) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithConcurrency sets how many day pages are requested at once
func WithConcurrency(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a Fitbit Web API client
func New(opts ...Option) Service {
	c := &client{
		baseURL:     DefaultAPIURL,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(DefaultRate, DefaultConcurrency),
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch implements Service
func (c *client) Fetch(ctx context.Context, accessToken string, metric types.Metric, start, end time.Time, g types.Granularity) ([]*Page, error) {
	if !metric.IsValid() {
		return nil, goerr.New("unsupported metric", goerr.V("metric", metric))
	}
	if end.Before(start) {
		return nil, goerr.New("window end is before start", goerr.V("start", start), goerr.V("end", end))
	}

	// Sleep has no intraday resolution; serve the finer request at day level.
	if metric.DailyOnly() || !g.Intraday() {
		body, err := c.get(ctx, accessToken, rangedPath(metric, start, end))
		if err != nil {
			return nil, err
		}
		return []*Page{{Metric: metric, Date: start, Body: body}}, nil
	}

	days := calendarDays(start, end)
	pages := make([]*Page, len(days))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)
	for i, day := range days {
		eg.Go(func() error {
			body, err := c.get(ctx, accessToken, intradayPath(metric, day))
			if err != nil {
				return goerr.Wrap(err, "failed to fetch intraday page", goerr.V("date", day.Format(dateLayout)))
			}
			pages[i] = &Page{Metric: metric, Date: day, Intraday: true, Body: body}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return pages, nil
}

// GetProfile implements Service
func (c *client) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := c.get(ctx, accessToken, "/1/user/-/profile.json")
	if err != nil {
		return nil, err
	}

	var resp profileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to parse profile")
	}
	return &resp.User, nil
}

func (c *client) get(ctx context.Context, accessToken, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, goerr.Wrap(err, "rate limiter wait aborted", goerr.V("path", path))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("path", path))
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call Fitbit API", goerr.V("path", path))
	}
	defer safe.DrainClose(ctx, resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response body", goerr.V("path", path))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.Wrap(ErrUnexpectedStatus, "Fitbit API request failed",
			goerr.V("path", path),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", truncate(body, maxErrorBodyLn)))
	}

	logging.From(ctx).Debug("Fitbit API response", "path", path, "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

func resourcePath(metric types.Metric) string {
	switch metric {
	case types.MetricHeartRate:
		return "/1/user/-/activities/heart"
	case types.MetricSleep:
		return "/1.2/user/-/sleep"
	default:
		return "/1/user/-/activities/steps"
	}
}

func rangedPath(metric types.Metric, start, end time.Time) string {
	return fmt.Sprintf("%s/date/%s/%s.json", resourcePath(metric), start.Format(dateLayout), end.Format(dateLayout))
}

func intradayPath(metric types.Metric, day time.Time) string {
	return fmt.Sprintf("%s/date/%s/1d/1min.json", resourcePath(metric), day.Format(dateLayout))
}

// calendarDays lists every date from start to end, both inclusive
func calendarDays(start, end time.Time) []time.Time {
	y, m, d := start.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	ey, em, ed := end.Date()
	last := time.Date(ey, em, ed, 0, 0, 0, 0, start.Location())

	var days []time.Time
	for !day.After(last) {
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
