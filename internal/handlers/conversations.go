package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/courierhq/courier/internal/auth"
	"github.com/courierhq/courier/internal/message"
)

// ConversationReader is the read-side surface the chat UI consumes.
type ConversationReader interface {
	ListConversations(ctx context.Context, tenantID string) ([]message.Conversation, error)
	ListConversation(ctx context.Context, tenantID, counterparty string) ([]message.Message, error)
	MarkConversationRead(ctx context.Context, tenantID, counterparty string) error
}

// ConversationsHandler serves the per-tenant conversation aggregate.
type ConversationsHandler struct {
	messages ConversationReader
	logger   *slog.Logger
}

// NewConversationsHandler creates a ConversationsHandler.
func NewConversationsHandler(log *slog.Logger, messages ConversationReader) *ConversationsHandler {
	return &ConversationsHandler{
		messages: messages,
		logger:   log.With(slog.String("handler", "conversations")),
	}
}

// Register registers conversation routes.
func (h *ConversationsHandler) Register(e *echo.Echo) {
	e.GET("/conversations", h.List)
	e.GET("/conversations/:phone/messages", h.ListMessages)
	e.POST("/conversations/:phone/read", h.MarkRead)
}

// List returns every conversation for the caller's tenant: latest message
// plus unread inbound count per counterparty.
func (h *ConversationsHandler) List(c echo.Context) error {
	tenantID, err := auth.TenantIDFromContext(c)
	if err != nil {
		return err
	}
	conversations, err := h.messages.ListConversations(c.Request().Context(), tenantID)
	if err != nil {
		h.logger.Error("list conversations failed", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Reason:  "internal",
			Message: "failed to list conversations",
		})
	}
	return c.JSON(http.StatusOK, conversations)
}

// ListMessages returns one thread, oldest first.
func (h *ConversationsHandler) ListMessages(c echo.Context) error {
	tenantID, err := auth.TenantIDFromContext(c)
	if err != nil {
		return err
	}
	phone := strings.TrimSpace(c.Param("phone"))
	if phone == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Reason:  "bad_request",
			Message: "phone is required",
		})
	}
	messages, err := h.messages.ListConversation(c.Request().Context(), tenantID, phone)
	if err != nil {
		h.logger.Error("list conversation failed",
			slog.String("counterparty", phone),
			slog.Any("error", err),
		)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Reason:  "internal",
			Message: "failed to list messages",
		})
	}
	return c.JSON(http.StatusOK, messages)
}

// MarkRead flips all unread inbound messages from one counterparty.
func (h *ConversationsHandler) MarkRead(c echo.Context) error {
	tenantID, err := auth.TenantIDFromContext(c)
	if err != nil {
		return err
	}
	phone := strings.TrimSpace(c.Param("phone"))
	if phone == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Reason:  "bad_request",
			Message: "phone is required",
		})
	}
	if err := h.messages.MarkConversationRead(c.Request().Context(), tenantID, phone); err != nil {
		h.logger.Error("mark conversation read failed",
			slog.String("counterparty", phone),
			slog.Any("error", err),
		)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Reason:  "internal",
			Message: "failed to mark conversation read",
		})
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
