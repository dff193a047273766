package fitbit

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
)

var (
	// ErrUnexpectedStatus is returned when the Web API answers with a non-2xx status
	ErrUnexpectedStatus = goerr.New("fitbit API returned non-success status")
	// ErrTokenRejected is returned when the authorization server refuses a grant
	ErrTokenRejected = goerr.New("fitbit authorization server rejected the grant")
)

// Service retrieves raw time series from the Fitbit Web API
type Service interface {
	// Fetch returns the raw pages for metric between start and end (inclusive
	// calendar dates). Intraday granularities yield one page per day in date
	// order; daily granularity, and sleep at any granularity, yield a single
	// ranged page.
	Fetch(ctx context.Context, accessToken string, metric types.Metric, start, end time.Time, g types.Granularity) ([]*Page, error)

	// GetProfile returns the account profile of the token owner
	GetProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// Authenticator performs OAuth2 grants against the Fitbit authorization server
type Authenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*model.Credentials, error)
}

// Page is one raw upstream response body
type Page struct {
	Metric types.Metric
	// Date is the requested day for intraday pages and the window start for
	// ranged pages
	Date time.Time
	// Intraday is true when Body holds a one-day intraday series
	Intraday bool
	Body     []byte
}

// Profile is the subset of /1/user/-/profile.json used here
type Profile struct {
	EncodedID   string `json:"encodedId"`
	DisplayName string `json:"displayName"`
	Timezone    string `json:"timezone"`
}

type profileResponse struct {
	User Profile `json:"user"`
}

// IntradaySample is one point of an intraday dataset. Time is a local
// time of day, "15:04:05".
type IntradaySample struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// IntradayDataset is the intraday part of a one-day activity response
type IntradayDataset struct {
	Dataset         []IntradaySample `json:"dataset"`
	DatasetInterval int              `json:"datasetInterval"`
	DatasetType     string           `json:"datasetType"`
}

// StepsIntradayResponse is /1/user/-/activities/steps/date/{date}/1d/1min.json
type StepsIntradayResponse struct {
	Intraday IntradayDataset `json:"activities-steps-intraday"`
}

// HeartIntradayResponse is /1/user/-/activities/heart/date/{date}/1d/1min.json
type HeartIntradayResponse struct {
	Intraday IntradayDataset `json:"activities-heart-intraday"`
}

// DailyValue is a per-day total. Fitbit encodes the value as a string.
type DailyValue struct {
	DateTime string `json:"dateTime"`
	Value    string `json:"value"`
}

// StepsDailyResponse is /1/user/-/activities/steps/date/{start}/{end}.json
type StepsDailyResponse struct {
	Steps []DailyValue `json:"activities-steps"`
}

// HeartDaily is one day of /activities/heart. RestingHeartRate is absent on
// days without enough wear time.
type HeartDaily struct {
	DateTime string `json:"dateTime"`
	Value    struct {
		RestingHeartRate *float64 `json:"restingHeartRate"`
	} `json:"value"`
}

// HeartDailyResponse is /1/user/-/activities/heart/date/{start}/{end}.json
type HeartDailyResponse struct {
	Heart []HeartDaily `json:"activities-heart"`
}

// SleepLog is one sleep record. Duration is in milliseconds.
type SleepLog struct {
	LogID       int64  `json:"logId"`
	DateOfSleep string `json:"dateOfSleep"`
	Duration    int64  `json:"duration"`
	IsMainSleep bool   `json:"isMainSleep"`
	StartTime   string `json:"startTime"`
}

// SleepResponse is /1.2/user/-/sleep/date/{start}/{end}.json
type SleepResponse struct {
	Sleep []SleepLog `json:"sleep"`
}
