package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"docudrop-backend/internal/config"
	"docudrop-backend/internal/credstore"
	"docudrop-backend/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{
		AppName:             "test-app",
		DropboxClientID:     "client-id",
		DropboxClientSecret: "client-secret",
	}
}

func newTestService(store credstore.Store, tokenURL string) *TokenService {
	s := NewTokenService(testConfig(), store, zap.NewNop().Sugar())
	if tokenURL != "" {
		s.tokenURL = tokenURL
	}
	return s
}

func storedCredential(expiresIn time.Duration) *models.Credential {
	now := time.Now()
	return &models.Credential{
		AccessToken:  "stored-access-token",
		RefreshToken: "stored-refresh-token",
		TokenType:    "bearer",
		ObtainedAt:   now,
		ExpiresAt:    now.Add(expiresIn),
	}
}

func TestIsExpired_Boundary(t *testing.T) {
	service := newTestService(credstore.NewMemoryStore(), "")

	tests := []struct {
		name      string
		expiresIn time.Duration
		want      bool
	}{
		{"well before buffer", time.Hour, false},
		{"one second outside buffer", ExpirationBuffer + time.Second, false},
		{"one second inside buffer", ExpirationBuffer - time.Second, true},
		{"already expired", -time.Minute, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cred := storedCredential(tc.expiresIn)
			if got := service.IsExpired(cred); got != tc.want {
				t.Errorf("IsExpired with expiry in %v = %v, want %v", tc.expiresIn, got, tc.want)
			}
		})
	}
}

func TestGetValidAccessToken_NoCredential(t *testing.T) {
	service := newTestService(credstore.NewMemoryStore(), "")

	_, err := service.GetValidAccessToken(context.Background())
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestGetValidAccessToken_ValidTokenSkipsRefresh(t *testing.T) {
	var refreshCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
	}))
	defer server.Close()

	store := credstore.NewMemoryStore()
	if err := store.Upsert(context.Background(), "test-app", storedCredential(time.Hour)); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	service := newTestService(store, server.URL)
	token, err := service.GetValidAccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "stored-access-token" {
		t.Errorf("expected stored token, got %q", token)
	}
	if refreshCalls != 0 {
		t.Errorf("expected no refresh calls, got %d", refreshCalls)
	}
}

func TestGetValidAccessToken_RefreshesAndPersists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("expected grant_type=refresh_token, got %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "stored-refresh-token" {
			t.Errorf("unexpected refresh_token %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "refreshed-access-token",
			"token_type":   "bearer",
			"expires_in":   14400,
		})
	}))
	defer server.Close()

	store := credstore.NewMemoryStore()
	if err := store.Upsert(context.Background(), "test-app", storedCredential(time.Minute)); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	service := newTestService(store, server.URL)
	token, err := service.GetValidAccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "refreshed-access-token" {
		t.Errorf("expected refreshed token, got %q", token)
	}

	persisted, err := store.ReadCurrent(context.Background(), "test-app")
	if err != nil {
		t.Fatalf("failed to read persisted credential: %v", err)
	}
	if persisted.AccessToken != "refreshed-access-token" {
		t.Errorf("persisted access token not updated: %q", persisted.AccessToken)
	}
	if persisted.RefreshToken != "stored-refresh-token" {
		t.Errorf("refresh token must not change on refresh, got %q", persisted.RefreshToken)
	}
	wantExpiry := time.Now().Add(14400 * time.Second)
	if diff := persisted.ExpiresAt.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("unexpected expires_at %v", persisted.ExpiresAt)
	}
}

func TestGetValidAccessToken_RefreshFailureCarriesProviderBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant", "error_description": "refresh token revoked"}`))
	}))
	defer server.Close()

	store := credstore.NewMemoryStore()
	if err := store.Upsert(context.Background(), "test-app", storedCredential(time.Minute)); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	service := newTestService(store, server.URL)
	_, err := service.GetValidAccessToken(context.Background())
	if err == nil {
		t.Fatal("expected refresh error, got nil")
	}

	var refreshErr *RefreshError
	if !errors.As(err, &refreshErr) {
		t.Fatalf("expected *RefreshError, got %T: %v", err, err)
	}
	if refreshErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", refreshErr.StatusCode)
	}
	if !strings.Contains(refreshErr.Body, "refresh token revoked") {
		t.Errorf("provider body not carried verbatim: %q", refreshErr.Body)
	}
}

func TestGetValidAccessToken_LegacyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer server.Close()

	store := credstore.NewMemoryStore()
	if err := store.Upsert(context.Background(), "test-app", storedCredential(time.Minute)); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	service := newTestService(store, server.URL)
	service.cfg.LegacyAccessToken = "legacy-token"

	token, err := service.GetValidAccessToken(context.Background())
	if err != nil {
		t.Fatalf("expected legacy fallback, got error: %v", err)
	}
	if token != "legacy-token" {
		t.Errorf("expected legacy token, got %q", token)
	}
}

func TestGetValidAccessToken_MissingClientCredentials(t *testing.T) {
	store := credstore.NewMemoryStore()
	if err := store.Upsert(context.Background(), "test-app", storedCredential(time.Minute)); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	service := newTestService(store, "")
	service.cfg.DropboxClientID = ""

	_, err := service.GetValidAccessToken(context.Background())
	if !errors.Is(err, ErrMissingClientCredentials) {
		t.Fatalf("expected ErrMissingClientCredentials, got %v", err)
	}
}

func TestExchangeCode_PersistsCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("expected grant_type=authorization_code, got %q", got)
		}
		if got := r.PostForm.Get("code"); got != "auth-code" {
			t.Errorf("unexpected code %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access-token",
			"refresh_token": "new-refresh-token",
			"token_type":    "bearer",
			"expires_in":    14400,
			"scope":         "files.content.write files.content.read",
			"account_id":    "dbid:abc",
		})
	}))
	defer server.Close()

	store := credstore.NewMemoryStore()
	service := newTestService(store, server.URL)

	cred, err := service.ExchangeCode(context.Background(), "auth-code", "http://localhost:8080/dropbox/callback")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}
	if cred.RefreshToken != "new-refresh-token" {
		t.Errorf("unexpected refresh token %q", cred.RefreshToken)
	}

	persisted, err := store.ReadCurrent(context.Background(), "test-app")
	if err != nil {
		t.Fatalf("credential not persisted: %v", err)
	}
	if persisted.AccessToken != "new-access-token" || persisted.AccountID != "dbid:abc" {
		t.Errorf("unexpected persisted credential: %+v", persisted)
	}

	// A follow-up token request is served from the warm cache and the store
	// without touching the network.
	token, err := service.GetValidAccessToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "new-access-token" {
		t.Errorf("expected cached token, got %q", token)
	}
}
