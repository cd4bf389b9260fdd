// Package contact keeps the lightweight counterparty directory: one row per
// (tenant, phone) with the last known display name.
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Contact is one conversation counterparty of a tenant.
type Contact struct {
	TenantID   string    `json:"tenant_id"`
	Phone      string    `json:"phone"`
	Name       string    `json:"name"`
	LastActive time.Time `json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// UpsertInput carries the fields recorded on every inbound message.
type UpsertInput struct {
	TenantID string
	Phone    string
	// Name is the contact display name from the envelope; when empty the
	// stored name is left untouched.
	Name string
}

// Store persists contacts.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a contact store.
func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("store", "contact")),
	}
}

// Upsert creates or refreshes a counterparty record and bumps last_active.
func (s *Store) Upsert(ctx context.Context, input UpsertInput) error {
	phone := strings.TrimSpace(input.Phone)
	if phone == "" {
		return fmt.Errorf("phone is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = phone
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contacts (tenant_id, phone, name, last_active)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant_id, phone) DO UPDATE SET
			name = CASE WHEN $4 THEN EXCLUDED.name ELSE contacts.name END,
			last_active = now()`,
		input.TenantID, phone, name, strings.TrimSpace(input.Name) != "")
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

// Get returns a single counterparty record.
func (s *Store) Get(ctx context.Context, tenantID, phone string) (Contact, error) {
	var c Contact
	err := s.pool.QueryRow(ctx, `
		SELECT tenant_id, phone, name, last_active, created_at
		FROM contacts WHERE tenant_id = $1 AND phone = $2`,
		tenantID, strings.TrimSpace(phone),
	).Scan(&c.TenantID, &c.Phone, &c.Name, &c.LastActive, &c.CreatedAt)
	if err != nil {
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}
