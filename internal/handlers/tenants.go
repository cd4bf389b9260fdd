package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/courierhq/courier/internal/db"
	"github.com/courierhq/courier/internal/tenant"
)

// TenantCreator onboards tenants.
type TenantCreator interface {
	Create(ctx context.Context, input tenant.CreateInput) (tenant.Tenant, error)
	UpdateAccessToken(ctx context.Context, id, accessToken string) error
}

// TenantsHandler exposes the onboarding surface. Routes sit behind the bearer
// JWT like the rest of the operator API.
type TenantsHandler struct {
	tenants TenantCreator
	logger  *slog.Logger
}

// NewTenantsHandler creates a TenantsHandler.
func NewTenantsHandler(log *slog.Logger, tenants TenantCreator) *TenantsHandler {
	return &TenantsHandler{
		tenants: tenants,
		logger:  log.With(slog.String("handler", "tenants")),
	}
}

// Register registers tenant routes.
func (h *TenantsHandler) Register(e *echo.Echo) {
	e.POST("/tenants", h.Create)
	e.PUT("/tenants/:id/access-token", h.RotateAccessToken)
}

type createTenantRequest struct {
	Name              string `json:"name"`
	AccessToken       string `json:"access_token"`
	PhoneNumberID     string `json:"phone_number_id"`
	BusinessAccountID string `json:"business_account_id"`
	VerifyToken       string `json:"verify_token"`
	APIVersion        string `json:"api_version"`
}

type createTenantResponse struct {
	Tenant tenant.Tenant `json:"tenant"`
	// WebhookSecret is returned exactly once, at creation; the tenant JSON
	// shape never includes it.
	WebhookSecret string `json:"webhook_secret"`
	WebhookPath   string `json:"webhook_path"`
	VerifyToken   string `json:"verify_token"`
}

// Create onboards a tenant and returns the generated webhook path secret.
func (h *TenantsHandler) Create(c echo.Context) error {
	var req createTenantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Reason:  "bad_request",
			Message: "invalid request body",
		})
	}

	t, err := h.tenants.Create(c.Request().Context(), tenant.CreateInput{
		Name:              req.Name,
		AccessToken:       req.AccessToken,
		PhoneNumberID:     req.PhoneNumberID,
		BusinessAccountID: req.BusinessAccountID,
		VerifyToken:       req.VerifyToken,
		APIVersion:        req.APIVersion,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return c.JSON(http.StatusConflict, ErrorResponse{
				Reason:  "conflict",
				Message: "tenant already exists",
			})
		}
		h.logger.Error("create tenant failed", slog.Any("error", err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Reason:  "bad_request",
			Message: err.Error(),
		})
	}

	h.logger.Info("tenant onboarded",
		slog.String("tenant_id", t.ID),
		slog.String("phone_number_id", t.PhoneNumberID),
	)
	return c.JSON(http.StatusCreated, createTenantResponse{
		Tenant:        t,
		WebhookSecret: t.WebhookSecret,
		WebhookPath:   "/webhook/" + t.WebhookSecret,
		VerifyToken:   t.VerifyToken,
	})
}

type rotateTokenRequest struct {
	AccessToken string `json:"access_token"`
}

// RotateAccessToken replaces a tenant's provider access token.
func (h *TenantsHandler) RotateAccessToken(c echo.Context) error {
	id := c.Param("id")
	var req rotateTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Reason:  "bad_request",
			Message: "invalid request body",
		})
	}
	if err := h.tenants.UpdateAccessToken(c.Request().Context(), id, req.AccessToken); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Reason:  "not_found",
				Message: "tenant not found",
			})
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Reason:  "bad_request",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
