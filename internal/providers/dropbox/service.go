// Package dropbox is a thin client for the Dropbox HTTP API covering the
// operations the upload flow needs: file upload and shared-link resolution.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL     = "https://api.dropboxapi.com"
	defaultContentBaseURL = "https://content.dropboxapi.com"
)

// Client talks to the Dropbox API with a single access token. Obtain instances
// through the auth client factory so the token is always currently valid.
type Client struct {
	httpClient     *http.Client
	apiBaseURL     string
	contentBaseURL string
	accessToken    string
}

// Option adjusts a Client at construction time.
type Option func(*Client)

// WithEndpoints overrides the API and content base URLs, mainly for tests.
func WithEndpoints(apiBaseURL, contentBaseURL string) Option {
	return func(c *Client) {
		c.apiBaseURL = strings.TrimSuffix(apiBaseURL, "/")
		c.contentBaseURL = strings.TrimSuffix(contentBaseURL, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// NewClient creates a Dropbox client bound to the given access token.
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		apiBaseURL:     defaultAPIBaseURL,
		contentBaseURL: defaultContentBaseURL,
		accessToken:    accessToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

// Upload writes content to path with "add" semantics and autorename enabled;
// on a name collision the remote side decides the final name.
func (c *Client) Upload(ctx context.Context, path string, content io.Reader) (*FileMetadata, error) {
	arg, err := json.Marshal(uploadArg{Path: path, Mode: "add", Autorename: true, Mute: false})
	if err != nil {
		return nil, fmt.Errorf("encoding upload arg: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBaseURL+"/2/files/upload", content)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Dropbox-API-Arg", string(arg))
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var meta FileMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &meta, nil
}

// CreateSharedLink asks the provider for a new shared link on path. When a
// link already exists the returned error matches IsSharedLinkAlreadyExists.
func (c *Client) CreateSharedLink(ctx context.Context, path string) (string, error) {
	payload := map[string]string{"path": path}
	body, err := c.postJSON(ctx, "/2/sharing/create_shared_link_with_settings", payload)
	if err != nil {
		return "", err
	}

	var link SharedLink
	if err := json.Unmarshal(body, &link); err != nil {
		return "", fmt.Errorf("failed to decode shared link response: %w", err)
	}
	return link.URL, nil
}

// ListSharedLinks returns the existing direct links for path.
func (c *Client) ListSharedLinks(ctx context.Context, path string) ([]SharedLink, error) {
	payload := map[string]any{"path": path, "direct_only": true}
	body, err := c.postJSON(ctx, "/2/sharing/list_shared_links", payload)
	if err != nil {
		return nil, err
	}

	var resp listSharedLinksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode shared links response: %w", err)
	}
	return resp.Links, nil
}

// GetOrCreateSharedLink resolves a direct-download shared link for path.
// Creation and the already-exists fallback together make this idempotent:
// asking twice for the same path yields the same normalized URL.
func (c *Client) GetOrCreateSharedLink(ctx context.Context, path string) (string, error) {
	link, err := c.CreateSharedLink(ctx, path)
	if err != nil {
		if !IsSharedLinkAlreadyExists(err) {
			return "", err
		}
		links, listErr := c.ListSharedLinks(ctx, path)
		if listErr != nil {
			return "", listErr
		}
		if len(links) == 0 {
			return "", err
		}
		link = links[0].URL
	}
	return NormalizeDirectLink(link), nil
}

// GetCurrentAccount returns the account that owns the access token.
func (c *Client) GetCurrentAccount(ctx context.Context) (*Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/2/users/get_current_account", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var account Account
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	return &account, nil
}

// NormalizeDirectLink rewrites a preview shared link into its direct-download
// form by flipping the dl query marker.
func NormalizeDirectLink(link string) string {
	return strings.Replace(link, "dl=0", "dl=1", 1)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp.StatusCode, body)
	}
	return body, nil
}

// apiError decodes the tagged error union Dropbox returns on failures. Bodies
// that are not the JSON error shape (proxies, auth layer) are preserved
// verbatim in the summary.
func (c *Client) apiError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.ErrorSummary == "" {
		apiErr.ErrorSummary = fmt.Sprintf("dropbox API error (status %d): %s", status, strings.TrimSpace(string(body)))
	}
	return apiErr
}
