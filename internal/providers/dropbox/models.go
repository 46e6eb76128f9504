package dropbox

import "errors"

// FileMetadata describes a file stored in Dropbox (API response shape).
type FileMetadata struct {
	Tag            string `json:".tag,omitempty"`
	Name           string `json:"name"`
	ID             string `json:"id"`
	PathLower      string `json:"path_lower"`
	PathDisplay    string `json:"path_display"`
	Size           int64  `json:"size"`
	Rev            string `json:"rev,omitempty"`
	ClientModified string `json:"client_modified,omitempty"`
	ServerModified string `json:"server_modified,omitempty"`
	ContentHash    string `json:"content_hash,omitempty"`
}

// SharedLink is one entry from the sharing endpoints.
type SharedLink struct {
	URL       string `json:"url"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	PathLower string `json:"path_lower,omitempty"`
}

type listSharedLinksResponse struct {
	Links   []SharedLink `json:"links"`
	HasMore bool         `json:"has_more"`
}

// Account holds the subset of users/get_current_account this service uses.
type Account struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Name      struct {
		DisplayName string `json:"display_name"`
	} `json:"name"`
}

// APIError is Dropbox's tagged error union. ErrorSummary is the provider's
// human-readable summary; Reason.Tag identifies the machine-readable variant
// the caller must pattern-match on.
type APIError struct {
	StatusCode   int       `json:"-"`
	ErrorSummary string    `json:"error_summary"`
	Reason       ErrorInfo `json:"error"`
}

// ErrorInfo carries the tag of a Dropbox error union variant.
type ErrorInfo struct {
	Tag string `json:".tag"`
}

func (e *APIError) Error() string {
	if e.ErrorSummary != "" {
		return e.ErrorSummary
	}
	return "dropbox API error"
}

// IsSharedLinkAlreadyExists reports whether err is the provider telling us a
// shared link for the path already exists, as opposed to any other failure.
func IsSharedLinkAlreadyExists(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Reason.Tag == "shared_link_already_exists"
}

// ErrorSummary extracts the provider's error summary from err, or returns ""
// when err did not originate from the Dropbox API.
func ErrorSummary(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorSummary
	}
	return ""
}
