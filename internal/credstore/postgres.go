package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"docudrop-backend/internal/credstore/migrations"
	"docudrop-backend/pkg/models"
)

// PostgresStore keeps credentials in a provider_tokens table. Concurrent
// refreshes from separate invocations may both write; the later write wins,
// which is acceptable because refresh tokens remain valid after use.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle without running migrations.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a pgx-backed connection and applies the embedded migrations.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.UpContext(context.Background(), db, "."); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return NewPostgresStore(db), nil
}

func (s *PostgresStore) ReadCurrent(ctx context.Context, appName string) (*models.Credential, error) {
	query := `
		SELECT access_token, refresh_token, token_type, scope, account_id, uid, obtained_at, expires_at
		FROM provider_tokens
		WHERE app_name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	cred := &models.Credential{}
	err := s.db.QueryRowContext(ctx, query, appName).Scan(
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.TokenType,
		&cred.Scope,
		&cred.AccountID,
		&cred.UID,
		&cred.ObtainedAt,
		&cred.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cred, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, appName string, cred *models.Credential) error {
	var id int64
	query := `
		SELECT id
		FROM provider_tokens
		WHERE app_name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := s.db.QueryRowContext(ctx, query, appName).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("db error: %w", err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		insert := `
			INSERT INTO provider_tokens
				(app_name, access_token, refresh_token, token_type, scope, account_id, uid, obtained_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		if _, err := s.db.ExecContext(ctx, insert,
			appName,
			cred.AccessToken,
			cred.RefreshToken,
			cred.TokenType,
			cred.Scope,
			cred.AccountID,
			cred.UID,
			cred.ObtainedAt,
			cred.ExpiresAt,
		); err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}
		return nil
	}

	update := `
		UPDATE provider_tokens
		SET access_token = $1, refresh_token = $2, token_type = $3, scope = $4,
		    account_id = $5, uid = $6, obtained_at = $7, expires_at = $8, updated_at = $9
		WHERE id = $10
	`
	if _, err := s.db.ExecContext(ctx, update,
		cred.AccessToken,
		cred.RefreshToken,
		cred.TokenType,
		cred.Scope,
		cred.AccountID,
		cred.UID,
		cred.ObtainedAt,
		cred.ExpiresAt,
		time.Now(),
		id,
	); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}
