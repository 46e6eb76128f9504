package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"docudrop-backend/internal/config"
)

// Handler exposes the OAuth authorization flow and the read-only status report.
type Handler struct {
	tokens *TokenService
	cfg    *config.Config
}

func NewHandler(tokens *TokenService, cfg *config.Config) *Handler {
	return &Handler{tokens: tokens, cfg: cfg}
}

// RegisterRoutes registers authorization routes with the Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/dropbox/authorize", h.handleAuthorize)
	e.GET("/dropbox/callback", h.handleCallback)
	e.GET("/dropbox/status", h.handleStatus)
	e.GET("/health", h.handleHealth)
}

// handleAuthorize redirects the operator to Dropbox's consent screen,
// requesting offline access so a refresh token is issued.
func (h *Handler) handleAuthorize(c echo.Context) error {
	if h.cfg.DropboxClientID == "" {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": ErrMissingClientCredentials.Error(),
		})
	}

	params := url.Values{}
	params.Set("client_id", h.cfg.DropboxClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", h.redirectURI(c))
	params.Set("token_access_type", "offline")
	params.Set("scope", strings.Join(DefaultScopes, " "))

	return c.Redirect(http.StatusTemporaryRedirect, AuthorizeURL+"?"+params.Encode())
}

// handleCallback exchanges the authorization code for a token pair and
// persists it. Raw tokens are never echoed back.
func (h *Handler) handleCallback(c echo.Context) error {
	if errParam := c.QueryParam("error"); errParam != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "dropbox authorization error: " + errParam,
		})
	}

	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "no authorization code received",
		})
	}

	cred, err := h.tokens.ExchangeCode(c.Request().Context(), code, h.redirectURI(c))
	if err != nil {
		if errors.Is(err, ErrMissingClientCredentials) {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to exchange code for tokens: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Dropbox authorization successful",
		"account_id": cred.AccountID,
		"scope":      cred.Scope,
		"expires_at": cred.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleStatus reports credential presence, expiry and time remaining.
func (h *Handler) handleStatus(c echo.Context) error {
	report, err := h.tokens.Status(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "error checking token status: " + err.Error(),
		})
	}

	if !report.Authorized {
		return c.JSON(http.StatusNotFound, map[string]any{
			"status":          "error",
			"message":         "No tokens found in store",
			"authorized":      false,
			"action_required": "Visit /dropbox/authorize to authorize the application",
		})
	}

	status := "operational"
	message := "System operational - tokens valid"
	if report.Expired {
		status = "token_expired"
		message = "Token expired but will be auto-refreshed on next upload"
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":     status,
		"message":    message,
		"authorized": true,
		"token_info": report,
	})
}

// handleHealth returns the health status of the backend service.
func (h *Handler) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// redirectURI prefers the configured redirect URI and otherwise derives one
// from the incoming request's host.
func (h *Handler) redirectURI(c echo.Context) string {
	if h.cfg.DropboxRedirectURI != "" {
		return h.cfg.DropboxRedirectURI
	}

	host := c.Request().Host
	if host == "" {
		host = "localhost:8080"
	}
	scheme := "https"
	if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
		scheme = "http"
	}
	return scheme + "://" + host + "/dropbox/callback"
}
