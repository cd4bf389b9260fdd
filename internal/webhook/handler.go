// Package webhook implements the provider-facing endpoints: the per-tenant
// verification handshake and the delivery endpoint that feeds ingestion.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/courierhq/courier/internal/tenant"
	"github.com/courierhq/courier/internal/whatsapp"
)

const maxBodyBytes int64 = 1 << 20 // 1 MiB

// TenantResolver resolves webhook path tokens to tenants.
type TenantResolver interface {
	GetByWebhookToken(ctx context.Context, token string) (tenant.Tenant, error)
	MarkVerified(ctx context.Context, id string) error
}

// EnvelopeProcessor ingests one change value for a resolved tenant. It never
// reports failure to the caller; entry-level errors are logged internally.
type EnvelopeProcessor interface {
	Process(ctx context.Context, t tenant.Tenant, value whatsapp.Value)
}

// Handler serves the multi-tenant webhook endpoint. A single route shape
// serves every tenant; the opaque {token} path segment is the only routing
// input.
type Handler struct {
	tenants   TenantResolver
	processor EnvelopeProcessor
	logger    *slog.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(log *slog.Logger, tenants TenantResolver, processor EnvelopeProcessor) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		tenants:   tenants,
		processor: processor,
		logger:    log.With(slog.String("handler", "webhook")),
	}
}

// Register registers the webhook routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/webhook/:token", h.Verify)
	e.POST("/webhook/:token", h.Receive)
}

// Verify implements the provider's subscription handshake. It succeeds only
// when the mode is "subscribe", the path token resolves to a tenant, and the
// tenant's stored verification token matches. Every failure is the same
// opaque 403 so a probing caller learns nothing about which check failed.
// Repeated valid calls keep succeeding.
func (h *Handler) Verify(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	mode := c.QueryParam("hub.mode")
	verifyToken := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if token == "" || mode != "subscribe" {
		return echo.NewHTTPError(http.StatusForbidden, "verification failed")
	}
	t, err := h.tenants.GetByWebhookToken(c.Request().Context(), token)
	if err != nil {
		if !errors.Is(err, tenant.ErrTenantNotFound) {
			h.logger.Error("tenant lookup failed", slog.Any("error", err))
		}
		return echo.NewHTTPError(http.StatusForbidden, "verification failed")
	}
	if subtle.ConstantTimeCompare([]byte(t.VerifyToken), []byte(verifyToken)) != 1 {
		return echo.NewHTTPError(http.StatusForbidden, "verification failed")
	}

	if err := h.tenants.MarkVerified(c.Request().Context(), t.ID); err != nil {
		h.logger.Error("mark verified failed",
			slog.String("tenant_id", t.ID),
			slog.Any("error", err),
		)
		return echo.NewHTTPError(http.StatusForbidden, "verification failed")
	}
	h.logger.Info("webhook verified", slog.String("tenant_id", t.ID))
	return c.String(http.StatusOK, challenge)
}

// Receive accepts one delivery. Once the path token has been read, the
// response is always 200 "OK": the provider treats non-2xx as delivery
// failure and retries aggressively, so downstream errors are logged rather
// than surfaced. Unknown tenants and routing-id mismatches are acknowledged
// and dropped; retrying those cannot help.
func (h *Handler) Receive(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return echo.NewHTTPError(http.StatusForbidden, "missing webhook token")
	}

	t, err := h.tenants.GetByWebhookToken(c.Request().Context(), token)
	if err != nil {
		if !errors.Is(err, tenant.ErrTenantNotFound) {
			h.logger.Error("tenant lookup failed", slog.Any("error", err))
		} else {
			h.logger.Warn("delivery for unknown webhook token")
		}
		return c.String(http.StatusOK, "OK")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("read delivery body failed",
			slog.String("tenant_id", t.ID),
			slog.Any("error", err),
		)
		return c.String(http.StatusOK, "OK")
	}
	var payload whatsapp.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("malformed delivery payload",
			slog.String("tenant_id", t.ID),
			slog.Any("error", err),
		)
		return c.String(http.StatusOK, "OK")
	}

	// Processing continues even if the provider drops the connection after
	// our acknowledgment is on the wire.
	ctx := context.WithoutCancel(c.Request().Context())
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			if value.Metadata.PhoneNumberID != t.PhoneNumberID {
				// Possible misconfiguration or multi-number account;
				// acknowledge without persisting.
				h.logger.Warn("routing id mismatch, dropping change",
					slog.String("tenant_id", t.ID),
					slog.String("delivered_to", value.Metadata.PhoneNumberID),
				)
				continue
			}
			h.processor.Process(ctx, t, value)
		}
	}
	return c.String(http.StatusOK, "OK")
}
