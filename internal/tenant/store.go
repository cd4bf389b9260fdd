// Package tenant is the credential store: per-tenant provider tokens and
// webhook routing identifiers.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courierhq/courier/internal/config"
)

// ErrTenantNotFound indicates no tenant matches the given key.
var ErrTenantNotFound = errors.New("tenant not found")

const tenantColumns = `id, name, access_token, phone_number_id, business_account_id,
	webhook_secret, verify_token, verified, api_version, created_at, updated_at`

// Store provides credential persistence backed by Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a tenant store.
func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("store", "tenant")),
	}
}

// Create onboards a tenant with a freshly generated webhook secret.
func (s *Store) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	if strings.TrimSpace(input.AccessToken) == "" {
		return Tenant{}, fmt.Errorf("access token is required")
	}
	if strings.TrimSpace(input.PhoneNumberID) == "" {
		return Tenant{}, fmt.Errorf("phone number id is required")
	}
	if strings.TrimSpace(input.VerifyToken) == "" {
		return Tenant{}, fmt.Errorf("verify token is required")
	}
	apiVersion := strings.TrimSpace(input.APIVersion)
	if apiVersion == "" {
		apiVersion = config.DefaultGraphAPIVersion
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tenants (name, access_token, phone_number_id, business_account_id,
			webhook_secret, verify_token, api_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+tenantColumns,
		strings.TrimSpace(input.Name),
		input.AccessToken,
		strings.TrimSpace(input.PhoneNumberID),
		strings.TrimSpace(input.BusinessAccountID),
		NewWebhookSecret(),
		input.VerifyToken,
		apiVersion,
	)
	t, err := scanTenant(row)
	if err != nil {
		return Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	return t, nil
}

// GetByWebhookToken resolves a tenant by its opaque webhook path token.
func (s *Store) GetByWebhookToken(ctx context.Context, token string) (Tenant, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Tenant{}, ErrTenantNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE webhook_secret = $1`, token)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, fmt.Errorf("get tenant by webhook token: %w", err)
	}
	return t, nil
}

// MarkVerified flips the verification flag after a successful handshake.
// Re-verifying an already verified tenant is a no-op.
func (s *Store) MarkVerified(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE tenants SET verified = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark tenant verified: %w", err)
	}
	return nil
}

// UpdateAccessToken rotates a tenant's provider access token.
func (s *Store) UpdateAccessToken(ctx context.Context, id, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return fmt.Errorf("access token is required")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET access_token = $2, updated_at = now() WHERE id = $1`,
		id, accessToken)
	if err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// NewWebhookSecret mints an opaque, unguessable webhook path token.
func NewWebhookSecret() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.AccessToken, &t.PhoneNumberID, &t.BusinessAccountID,
		&t.WebhookSecret, &t.VerifyToken, &t.Verified, &t.APIVersion,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}
