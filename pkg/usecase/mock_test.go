package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
	"github.com/secmon-lab/wearsync/pkg/service/fitbit"
)

type fetchCall struct {
	AccessToken string
	Metric      types.Metric
	Start, End  time.Time
}

type mockFetcher struct {
	mu        sync.Mutex
	calls     []fetchCall
	FetchFunc func(ctx context.Context, accessToken string, metric types.Metric, start, end time.Time, g types.Granularity) ([]*fitbit.Page, error)
	Profile   *fitbit.Profile
}

func (m *mockFetcher) Fetch(ctx context.Context, accessToken string, metric types.Metric, start, end time.Time, g types.Granularity) ([]*fitbit.Page, error) {
	m.mu.Lock()
	m.calls = append(m.calls, fetchCall{AccessToken: accessToken, Metric: metric, Start: start, End: end})
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, accessToken, metric, start, end, g)
	}
	return emptyPages(metric, start, end), nil
}

func (m *mockFetcher) GetProfile(ctx context.Context, accessToken string) (*fitbit.Profile, error) {
	if m.Profile == nil {
		return nil, fitbit.ErrUnexpectedStatus
	}
	return m.Profile, nil
}

func (m *mockFetcher) Calls() []fetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fetchCall(nil), m.calls...)
}

type mockAuth struct {
	RefreshFunc  func(ctx context.Context, refreshToken string) (*model.Credentials, error)
	ExchangeFunc func(ctx context.Context, code string) (*model.Credentials, error)
	refreshed    []string
}

func (m *mockAuth) AuthCodeURL(state string) string {
	return "https://www.fitbit.com/oauth2/authorize?state=" + state
}

func (m *mockAuth) Exchange(ctx context.Context, code string) (*model.Credentials, error) {
	return m.ExchangeFunc(ctx, code)
}

func (m *mockAuth) Refresh(ctx context.Context, refreshToken string) (*model.Credentials, error) {
	m.refreshed = append(m.refreshed, refreshToken)
	if m.RefreshFunc == nil {
		return nil, fitbit.ErrTokenRejected
	}
	return m.RefreshFunc(ctx, refreshToken)
}

type forwarded struct {
	UserID string
	Point  *model.Point
}

type mockForwarder struct {
	Disabled    bool
	ForwardFunc func(ctx context.Context, userID string, p *model.Point) error
	points      []forwarded
}

func (m *mockForwarder) Forward(ctx context.Context, userID string, p *model.Point) error {
	m.points = append(m.points, forwarded{UserID: userID, Point: p})
	if m.ForwardFunc != nil {
		return m.ForwardFunc(ctx, userID, p)
	}
	return nil
}

func (m *mockForwarder) Enabled() bool {
	return !m.Disabled
}

// emptyPages mimics a ranged response with no samples
func emptyPages(metric types.Metric, start, _ time.Time) []*fitbit.Page {
	var body string
	switch metric {
	case types.MetricSteps:
		body = `{"activities-steps":[]}`
	case types.MetricHeartRate:
		body = `{"activities-heart":[]}`
	default:
		body = `{"sleep":[]}`
	}
	return []*fitbit.Page{{Metric: metric, Date: start, Body: []byte(body)}}
}

type mockArchive struct {
	mu    sync.Mutex
	err   error
	saved []string
}

func (m *mockArchive) Save(ctx context.Context, userID string, metric types.Metric, date time.Time, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, userID+"/"+metric.String()+"/"+date.Format(time.DateOnly))
	return m.err
}
