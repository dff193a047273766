package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Connection links an internal user to a Fitbit account and its OAuth
// credentials. LastSyncedAt is nil until the first completed sync window.
type Connection struct {
	UserID         string     `json:"user_id"`
	ProviderUserID string     `json:"provider_user_id"`
	AccessToken    string     `json:"access_token" masq:"secret"`
	RefreshToken   string     `json:"refresh_token" masq:"secret"`
	Scope          string     `json:"scope"`
	TokenType      string     `json:"token_type"`
	ExpiresAt      time.Time  `json:"expires_at"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Validate checks fields required for persistence
func (c *Connection) Validate() error {
	if c.UserID == "" {
		return goerr.New("user_id is required")
	}
	if c.ProviderUserID == "" {
		return goerr.New("provider_user_id is required", goerr.V("user_id", c.UserID))
	}
	if c.AccessToken == "" || c.RefreshToken == "" {
		return goerr.New("access and refresh tokens are required", goerr.V("user_id", c.UserID))
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored records
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	cp := *c
	if c.LastSyncedAt != nil {
		t := *c.LastSyncedAt
		cp.LastSyncedAt = &t
	}
	return &cp
}

// Credentials is the result of a token exchange or refresh
type Credentials struct {
	AccessToken    string    `masq:"secret"`
	RefreshToken   string    `masq:"secret"`
	ExpiresAt      time.Time
	Scope          string
	TokenType      string
	ProviderUserID string
}

// Apply copies credentials onto the connection. Empty scope, token type and
// provider user id keep their stored values.
func (c *Connection) Apply(cred *Credentials) {
	c.AccessToken = cred.AccessToken
	if cred.RefreshToken != "" {
		c.RefreshToken = cred.RefreshToken
	}
	c.ExpiresAt = cred.ExpiresAt
	if cred.Scope != "" {
		c.Scope = cred.Scope
	}
	if cred.TokenType != "" {
		c.TokenType = cred.TokenType
	}
	if cred.ProviderUserID != "" {
		c.ProviderUserID = cred.ProviderUserID
	}
}
