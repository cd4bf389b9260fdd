// Package refresh re-issues expired signed URLs for already-relayed media.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/courierhq/courier/internal/message"
	"github.com/courierhq/courier/internal/relay"
)

var (
	// ErrAccessDenied covers both unknown messages and requesters who are
	// neither sender nor receiver; callers must not be able to tell which.
	ErrAccessDenied = errors.New("access denied")
	// ErrMediaIncomplete indicates the stored descriptor lacks the asset id
	// or MIME type needed to rebuild the storage key.
	ErrMediaIncomplete = errors.New("media data incomplete")
	// ErrNoMedia indicates the message carries no media descriptor at all.
	ErrNoMedia = errors.New("message has no media")
)

// MessageStore is the persistence surface the refresh flow needs.
type MessageStore interface {
	GetByID(ctx context.Context, id string) (message.Message, error)
	UpdateMediaDescriptor(ctx context.Context, id string, media *message.MediaDescriptor) error
}

// URLIssuer re-signs read references for stored objects.
type URLIssuer interface {
	IssueSignedURL(ctx context.Context, ownerID, assetID, mime string) (relay.Result, error)
}

// Result is the outcome of a refresh.
type Result struct {
	MessageID   string    `json:"message_id"`
	MediaURL    string    `json:"media_url"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Service re-issues signed URLs on demand.
type Service struct {
	messages MessageStore
	issuer   URLIssuer
	logger   *slog.Logger
}

// NewService creates a refresh service.
func NewService(log *slog.Logger, messages MessageStore, issuer URLIssuer) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		messages: messages,
		issuer:   issuer,
		logger:   log.With(slog.String("service", "refresh")),
	}
}

// Refresh issues a fresh signed URL for the media attached to messageID.
// The requester must be a party to the message. The owner namespace is the
// conversation counterparty, the same rule used at relay time. If persisting
// the refreshed descriptor fails, the fresh URL is still returned: the read
// succeeded even though the cache update did not.
func (s *Service) Refresh(ctx context.Context, messageID, requesterID string) (Result, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, message.ErrMessageNotFound) {
			return Result{}, ErrAccessDenied
		}
		return Result{}, fmt.Errorf("load message: %w", err)
	}
	if requesterID != msg.SenderID && requesterID != msg.ReceiverID && requesterID != msg.TenantID {
		return Result{}, ErrAccessDenied
	}
	if msg.Media == nil {
		return Result{}, ErrNoMedia
	}
	if strings.TrimSpace(msg.Media.MediaID) == "" || strings.TrimSpace(msg.Media.Mime) == "" {
		return Result{}, ErrMediaIncomplete
	}

	result, err := s.issuer.IssueSignedURL(ctx, msg.Counterparty(), msg.Media.MediaID, msg.Media.Mime)
	if err != nil {
		return Result{}, fmt.Errorf("issue signed url: %w", err)
	}

	updated := *msg.Media
	updated.URL = result.URL
	updated.URLIssuedAt = result.IssuedAt
	updated.StorageKey = result.StorageKey
	updated.RelayStatus = message.RelayUploaded
	updated.UploadError = ""
	if err := s.messages.UpdateMediaDescriptor(ctx, msg.ID, &updated); err != nil {
		s.logger.Error("persist refreshed descriptor failed",
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
	}

	return Result{
		MessageID:   msg.ID,
		MediaURL:    result.URL,
		RefreshedAt: result.IssuedAt,
	}, nil
}
