// Package auth owns the credential lifecycle: the authorization-code exchange,
// transparent access-token refresh, and construction of ready-to-use provider
// clients.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"docudrop-backend/internal/config"
	"docudrop-backend/internal/credstore"
	"docudrop-backend/pkg/models"
)

const (
	// AuthorizeURL is Dropbox's OAuth2 authorization endpoint.
	AuthorizeURL = "https://www.dropbox.com/oauth2/authorize"

	defaultTokenURL = "https://api.dropboxapi.com/oauth2/token"

	// ExpirationBuffer makes a token count as expired slightly early, so it
	// cannot expire on the provider side between our check and the remote call.
	ExpirationBuffer = 5 * time.Minute
)

// DefaultScopes are the capabilities requested during authorization.
var DefaultScopes = []string{
	"files.content.write",
	"files.content.read",
	"files.metadata.read",
	"files.metadata.write",
}

// TokenService produces currently-valid access tokens, refreshing and
// persisting transparently. The warm-process cache is never authoritative:
// entries expire at the same buffered instant the token itself does, and a
// cold start always reads the store.
type TokenService struct {
	cfg        *config.Config
	store      credstore.Store
	cache      *ttlcache.Cache[string, *models.Credential]
	httpClient *http.Client
	tokenURL   string
	logger     *zap.SugaredLogger
}

func NewTokenService(cfg *config.Config, store credstore.Store, logger *zap.SugaredLogger) *TokenService {
	cache := ttlcache.New[string, *models.Credential]()
	go cache.Start()
	return &TokenService{
		cfg:        cfg,
		store:      store,
		cache:      cache,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokenURL:   defaultTokenURL,
		logger:     logger,
	}
}

// IsExpired reports whether cred's access token is inside the expiration
// buffer, i.e. now >= expiresAt - ExpirationBuffer.
func (s *TokenService) IsExpired(cred *models.Credential) bool {
	return !time.Now().Before(cred.ExpiresAt.Add(-ExpirationBuffer))
}

// GetValidAccessToken returns an access token that is valid right now. An
// expired credential is refreshed against the provider and persisted before
// the new token is returned. Refresh is attempted at most once per call.
func (s *TokenService) GetValidAccessToken(ctx context.Context) (string, error) {
	cred := s.cachedCredential()
	if cred == nil {
		var err error
		cred, err = s.store.ReadCurrent(ctx, s.cfg.AppName)
		if err != nil {
			if errors.Is(err, credstore.ErrNotFound) {
				return "", ErrNoCredential
			}
			return "", fmt.Errorf("reading stored credential: %w", err)
		}
	}

	if !s.IsExpired(cred) {
		s.cacheCredential(cred)
		return cred.AccessToken, nil
	}

	s.logger.Infow("access token expired, refreshing", "expires_at", cred.ExpiresAt)
	refreshed, err := s.refresh(ctx, cred)
	if err != nil {
		if s.cfg.LegacyAccessToken != "" {
			// Explicit operator-configured fallback. Loud on purpose: the
			// legacy token cannot be refreshed and will eventually die.
			s.logger.Warnw("token refresh failed, falling back to legacy access token", "error", err)
			return s.cfg.LegacyAccessToken, nil
		}
		return "", err
	}

	if err := s.store.Upsert(ctx, s.cfg.AppName, refreshed); err != nil {
		return "", fmt.Errorf("persisting refreshed credential: %w", err)
	}
	s.cacheCredential(refreshed)

	s.logger.Infow("access token refreshed", "expires_at", refreshed.ExpiresAt)
	return refreshed.AccessToken, nil
}

// ExchangeCode completes the authorization-code flow: it exchanges code for a
// token pair, persists the resulting credential and returns it.
func (s *TokenService) ExchangeCode(ctx context.Context, code, redirectURI string) (*models.Credential, error) {
	if !s.cfg.HasClientCredentials() {
		return nil, ErrMissingClientCredentials
	}

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", s.cfg.DropboxClientID)
	data.Set("client_secret", s.cfg.DropboxClientSecret)
	data.Set("redirect_uri", redirectURI)

	tr, err := s.postTokenEndpoint(ctx, data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cred := &models.Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
		AccountID:    tr.AccountID,
		UID:          tr.UID,
		ObtainedAt:   now,
		ExpiresAt:    now.Add(time.Duration(tr.ExpiresIn) * time.Second),
	}

	if err := s.store.Upsert(ctx, s.cfg.AppName, cred); err != nil {
		return nil, fmt.Errorf("persisting credential: %w", err)
	}
	s.cacheCredential(cred)
	return cred, nil
}

// Status reports credential presence and expiry without mutating anything.
func (s *TokenService) Status(ctx context.Context) (*StatusReport, error) {
	cred, err := s.store.ReadCurrent(ctx, s.cfg.AppName)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return &StatusReport{Authorized: false}, nil
		}
		return nil, fmt.Errorf("reading stored credential: %w", err)
	}

	report := &StatusReport{
		Authorized: true,
		Expired:    s.IsExpired(cred),
		AccountID:  cred.AccountID,
		Scope:      cred.Scope,
		ObtainedAt: cred.ObtainedAt,
		ExpiresAt:  cred.ExpiresAt,
	}
	if !report.Expired {
		report.MinutesRemaining = int(cred.TimeRemaining() / time.Minute)
	}
	return report, nil
}

// refresh exchanges the refresh token for a new access token. The refresh
// token itself never changes; only the access token and expiry instants do.
func (s *TokenService) refresh(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if !s.cfg.HasClientCredentials() {
		return nil, ErrMissingClientCredentials
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", cred.RefreshToken)
	data.Set("client_id", s.cfg.DropboxClientID)
	data.Set("client_secret", s.cfg.DropboxClientSecret)

	tr, err := s.postTokenEndpoint(ctx, data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updated := *cred
	updated.AccessToken = tr.AccessToken
	if tr.TokenType != "" {
		updated.TokenType = tr.TokenType
	}
	updated.ObtainedAt = now
	updated.ExpiresAt = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	return &updated, nil
}

func (s *TokenService) postTokenEndpoint(ctx context.Context, data url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RefreshError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	tr := &tokenResponse{}
	if err := json.Unmarshal(body, tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return tr, nil
}

func (s *TokenService) cachedCredential() *models.Credential {
	item := s.cache.Get(s.cfg.AppName)
	if item == nil {
		return nil
	}
	return item.Value()
}

func (s *TokenService) cacheCredential(cred *models.Credential) {
	ttl := time.Until(cred.ExpiresAt.Add(-ExpirationBuffer))
	if ttl <= 0 {
		return
	}
	s.cache.Set(s.cfg.AppName, cred, ttl)
}
