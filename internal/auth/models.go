package auth

import "time"

// tokenResponse is the provider token endpoint's response shape, for both the
// authorization-code exchange and the refresh-token exchange. Refresh
// responses omit refresh_token, scope and account ids.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	AccountID    string `json:"account_id"`
	UID          string `json:"uid"`
}

// StatusReport is the read-only credential state exposed by /dropbox/status.
type StatusReport struct {
	Authorized       bool      `json:"authorized"`
	Expired          bool      `json:"is_expired"`
	AccountID        string    `json:"account_id,omitempty"`
	Scope            string    `json:"scope,omitempty"`
	ObtainedAt       time.Time `json:"obtained_at,omitzero"`
	ExpiresAt        time.Time `json:"expires_at,omitzero"`
	MinutesRemaining int       `json:"minutes_remaining"`
}
