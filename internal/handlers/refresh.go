package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/courierhq/courier/internal/auth"
	"github.com/courierhq/courier/internal/refresh"
)

// RefreshService re-issues signed URLs for relayed media.
type RefreshService interface {
	Refresh(ctx context.Context, messageID, requesterID string) (refresh.Result, error)
}

// RefreshHandler exposes the on-demand signed-URL refresh endpoint.
type RefreshHandler struct {
	service RefreshService
	logger  *slog.Logger
}

// NewRefreshHandler creates a RefreshHandler.
func NewRefreshHandler(log *slog.Logger, service RefreshService) *RefreshHandler {
	return &RefreshHandler{
		service: service,
		logger:  log.With(slog.String("handler", "refresh")),
	}
}

// Register registers the refresh route.
func (h *RefreshHandler) Register(e *echo.Echo) {
	e.POST("/media/refresh", h.Refresh)
}

type refreshRequest struct {
	MessageID string `json:"messageId"`
}

type refreshResponse struct {
	Success     bool   `json:"success"`
	MessageID   string `json:"messageId"`
	MediaURL    string `json:"mediaUrl"`
	RefreshedAt string `json:"refreshedAt"`
}

// Refresh re-issues the signed URL for one message's media. Denials are
// deliberately generic: the response never reveals whether the message
// exists.
func (h *RefreshHandler) Refresh(c echo.Context) error {
	requesterID, err := auth.SubjectFromContext(c)
	if err != nil {
		return err
	}

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Reason:  "bad_request",
			Message: "invalid request body",
		})
	}
	if strings.TrimSpace(req.MessageID) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Reason:  "bad_request",
			Message: "messageId is required",
		})
	}

	result, err := h.service.Refresh(c.Request().Context(), req.MessageID, requesterID)
	if err != nil {
		switch {
		case errors.Is(err, refresh.ErrAccessDenied):
			return c.JSON(http.StatusForbidden, ErrorResponse{
				Reason:  "access_denied",
				Message: "access denied",
			})
		case errors.Is(err, refresh.ErrMediaIncomplete):
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Reason:  "media_incomplete",
				Message: "media data incomplete",
			})
		case errors.Is(err, refresh.ErrNoMedia):
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Reason:  "no_media",
				Message: "message has no media attachment",
			})
		default:
			h.logger.Error("refresh failed",
				slog.String("message_id", req.MessageID),
				slog.Any("error", err),
			)
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Reason:  "internal",
				Message: "failed to refresh media url",
			})
		}
	}

	return c.JSON(http.StatusOK, refreshResponse{
		Success:     true,
		MessageID:   result.MessageID,
		MediaURL:    result.MediaURL,
		RefreshedAt: result.RefreshedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}
