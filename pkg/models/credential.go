package models

import "time"

// Credential represents the delegated OAuth tokens granting access to the
// organization's Dropbox account. Exactly one current credential exists per
// application name; refreshes replace the access token but never the refresh token.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
	AccountID    string    `json:"account_id,omitempty"`
	UID          string    `json:"uid,omitempty"`
	ObtainedAt   time.Time `json:"obtained_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TimeRemaining returns how long until the access token expires.
// Negative values mean the token is already past its expiry instant.
func (c *Credential) TimeRemaining() time.Duration {
	return time.Until(c.ExpiresAt)
}
