// Package credstore persists the provider OAuth credential across stateless
// invocations. A single credential exists per application name; concurrent
// writers are resolved last-write-wins by the backing store.
package credstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"docudrop-backend/internal/config"
	"docudrop-backend/pkg/models"
)

// ErrNotFound is returned when no credential has been stored yet.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes the current credential for an application name.
type Store interface {
	ReadCurrent(ctx context.Context, appName string) (*models.Credential, error)
	Upsert(ctx context.Context, appName string, cred *models.Credential) error
}

// New builds the store selected by cfg.TokenStore.
func New(cfg *config.Config, logger *zap.SugaredLogger) (Store, error) {
	switch cfg.TokenStore {
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return nil, errors.New("TOKEN_STORE=postgres requires DATABASE_DSN")
		}
		return OpenPostgres(cfg.DatabaseDSN)
	case "file":
		return NewFileStore(cfg.TokenFilePath, logger), nil
	case "memory":
		logger.Warnw("using in-memory token store, credentials will not survive restarts")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown token store backend: %s", cfg.TokenStore)
	}
}
