package usecase

import "errors"

// Sentinel errors for use case layer. Classified errors join the sentinel
// with the underlying cause, so errors.Is matches both.
var (
	// ErrAuth means the authorization server rejected the stored refresh token
	ErrAuth = errors.New("authorization rejected")
	// ErrUpstream means a Fitbit API call or its payload failed
	ErrUpstream = errors.New("upstream fetch failed")
	// ErrDelivery means a single point was not accepted downstream
	ErrDelivery = errors.New("delivery failed")
	// ErrConnectionNotFound means no connection exists for the user
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrInvalidState means the OAuth state does not match the session
	ErrInvalidState = errors.New("invalid oauth state")
)

// Context keys for error values
const (
	UserIDKey = "user_id"
	RunIDKey  = "run_id"
	MetricKey = "metric"
)
