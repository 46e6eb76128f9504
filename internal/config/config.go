// Package config centralizes environment-driven settings so services receive
// an explicit Config instead of reading the environment themselves.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAddr          = ":8080"
	defaultAppName       = "PDF_Defensor_Democracia"
	defaultDropboxFolder = "/PDF_Defensor_Democracia"
	defaultTokenStore    = "file"
	defaultTokenFilePath = ".dropbox-tokens.json"
	defaultMaxFileSize   = 5 * 1024 * 1024
	defaultMaxFiles      = 10
	defaultUploadTimeout = 60 * time.Second
)

// Config holds runtime settings for the document deposit backend.
type Config struct {
	Addr    string
	AppName string

	DropboxClientID     string
	DropboxClientSecret string
	DropboxRedirectURI  string
	DropboxFolder       string

	// LegacyAccessToken is an optional non-refreshable token used only as an
	// explicit fallback when a refresh fails.
	LegacyAccessToken string

	// TokenStore selects the credential store backend: "postgres", "file" or "memory".
	TokenStore    string
	DatabaseDSN   string
	TokenFilePath string

	// ArchiveDir enables a durable local copy of each uploaded file when non-empty.
	ArchiveDir string

	UploadLimitBypass  bool
	MaxFileSize        int64
	MaxFilesPerRequest int
	UploadTimeout      time.Duration

	FrontendURL string
	Domain      string
}

// Load builds a Config from environment variables, applying defaults for
// anything unset. Missing Dropbox client credentials are not fatal here; token
// operations surface that as an error when they are actually needed.
func Load() *Config {
	return &Config{
		Addr:                getEnv("ADDR", defaultAddr),
		AppName:             getEnv("APP_NAME", defaultAppName),
		DropboxClientID:     os.Getenv("DROPBOX_CLIENT_ID"),
		DropboxClientSecret: os.Getenv("DROPBOX_CLIENT_SECRET"),
		DropboxRedirectURI:  os.Getenv("DROPBOX_REDIRECT_URI"),
		DropboxFolder:       normalizeFolder(getEnv("DROPBOX_FOLDER", defaultDropboxFolder)),
		LegacyAccessToken:   os.Getenv("DROPBOX_ACCESS_TOKEN"),
		TokenStore:          getEnv("TOKEN_STORE", defaultTokenStore),
		DatabaseDSN:         os.Getenv("DATABASE_DSN"),
		TokenFilePath:       getEnv("TOKEN_FILE_PATH", defaultTokenFilePath),
		ArchiveDir:          os.Getenv("ARCHIVE_DIR"),
		UploadLimitBypass:   getEnvBool("UPLOAD_LIMIT_BYPASS"),
		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", defaultMaxFileSize),
		MaxFilesPerRequest:  getEnvInt("MAX_FILES_PER_REQUEST", defaultMaxFiles),
		UploadTimeout:       getEnvDuration("UPLOAD_TIMEOUT", defaultUploadTimeout),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		Domain:              os.Getenv("DOMAIN"),
	}
}

// HasClientCredentials reports whether the OAuth client id and secret are configured.
func (c *Config) HasClientCredentials() bool {
	return c.DropboxClientID != "" && c.DropboxClientSecret != ""
}

func normalizeFolder(folder string) string {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return defaultDropboxFolder
	}
	if !strings.HasPrefix(folder, "/") {
		folder = "/" + folder
	}
	return strings.TrimSuffix(folder, "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
