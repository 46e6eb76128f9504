package auth

import (
	"errors"
	"fmt"
)

// ErrNoCredential means no credential has ever been stored; the authorization
// flow must be completed before uploads can work.
var ErrNoCredential = errors.New("no stored credential: authorize the application at /dropbox/authorize first")

// ErrMissingClientCredentials is a configuration error and is never retried.
var ErrMissingClientCredentials = errors.New("missing DROPBOX_CLIENT_ID or DROPBOX_CLIENT_SECRET")

// RefreshError carries the provider's verbatim error body from a failed token
// refresh for operator diagnosis.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed with status %d: %s", e.StatusCode, e.Body)
}
