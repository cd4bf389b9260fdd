// Package ingest drives inbound envelope processing: normalize each entry,
// relay attached media, and persist exactly one row per provider message id.
package ingest

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/courierhq/courier/internal/contact"
	"github.com/courierhq/courier/internal/message"
	"github.com/courierhq/courier/internal/relay"
	"github.com/courierhq/courier/internal/tenant"
	"github.com/courierhq/courier/internal/whatsapp"
)

// ContactUpserter records counterparty activity. Best-effort: a failure here
// never blocks message persistence.
type ContactUpserter interface {
	Upsert(ctx context.Context, input contact.UpsertInput) error
}

// MessageWriter persists normalized messages and receipt updates.
type MessageWriter interface {
	Create(ctx context.Context, m message.Message) (created bool, err error)
	MarkRead(ctx context.Context, id string, at time.Time) error
}

// Relayer copies provider media into durable storage.
type Relayer interface {
	Relay(ctx context.Context, input relay.Input) (relay.Result, error)
}

// Processor is the ingestion orchestrator.
type Processor struct {
	contacts ContactUpserter
	messages MessageWriter
	relayer  Relayer
	logger   *slog.Logger
}

// NewProcessor creates an ingestion processor.
func NewProcessor(log *slog.Logger, contacts ContactUpserter, messages MessageWriter, relayer Relayer) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		contacts: contacts,
		messages: messages,
		relayer:  relayer,
		logger:   log.With(slog.String("component", "ingest")),
	}
}

// Process handles one webhook change value for an already-resolved tenant.
// Entries are processed independently: any entry failing at any step is
// logged and the loop continues, because partial failure within an envelope
// is expected and there is no batch atomicity requirement.
func (p *Processor) Process(ctx context.Context, t tenant.Tenant, value whatsapp.Value) {
	names := contactNames(value.Contacts)

	for _, msg := range value.Messages {
		p.processMessage(ctx, t, msg, names)
	}
	for _, status := range value.Statuses {
		p.processStatus(ctx, status)
	}
}

func (p *Processor) processMessage(ctx context.Context, t tenant.Tenant, msg whatsapp.Message, names map[string]string) {
	log := p.logger.With(
		slog.String("tenant_id", t.ID),
		slog.String("message_id", msg.ID),
	)
	if strings.TrimSpace(msg.ID) == "" {
		log.Warn("skip message without provider id")
		return
	}

	if err := p.contacts.Upsert(ctx, contact.UpsertInput{
		TenantID: t.ID,
		Phone:    msg.From,
		Name:     names[msg.From],
	}); err != nil {
		// Losing the contact name must not lose the message.
		log.Warn("contact upsert failed", slog.Any("error", err))
	}

	normalized := whatsapp.Normalize(msg)
	record := message.Message{
		ID:         msg.ID,
		TenantID:   t.ID,
		SenderID:   msg.From,
		ReceiverID: t.PhoneNumberID,
		Content:    normalized.DisplayContent,
		Type:       normalized.Type,
		FromMe:     false,
		SentAt:     parseTimestamp(msg.Timestamp),
		Media:      normalized.Media,
	}

	if record.Media != nil {
		p.relayMedia(ctx, t, &record, log)
	}

	created, err := p.messages.Create(ctx, record)
	if err != nil {
		log.Error("persist message failed", slog.Any("error", err))
		return
	}
	if !created {
		log.Debug("duplicate delivery ignored")
		return
	}
	log.Info("message ingested",
		slog.String("type", string(record.Type)),
		slog.Bool("has_media", record.Media != nil),
	)
}

// relayMedia attempts the relay and records the outcome on the descriptor.
// Relay failure degrades to relay-status failed; the message is persisted
// with its display content intact either way.
func (p *Processor) relayMedia(ctx context.Context, t tenant.Tenant, record *message.Message, log *slog.Logger) {
	if p.relayer == nil || strings.TrimSpace(t.AccessToken) == "" {
		record.Media.RelayStatus = message.RelayFailed
		record.Media.UploadError = "no usable access token for media relay"
		return
	}
	result, err := p.relayer.Relay(ctx, relay.Input{
		OwnerID:     record.Counterparty(),
		AssetID:     record.Media.MediaID,
		Mime:        record.Media.Mime,
		AccessToken: t.AccessToken,
	})
	if err != nil {
		log.Warn("media relay failed",
			slog.String("media_id", record.Media.MediaID),
			slog.Any("error", err),
		)
		record.Media.RelayStatus = message.RelayFailed
		record.Media.UploadError = "media upload failed: " + err.Error()
		return
	}
	record.Media.RelayStatus = message.RelayUploaded
	record.Media.StorageKey = result.StorageKey
	record.Media.URL = result.URL
	record.Media.URLIssuedAt = result.IssuedAt
}

// processStatus applies delivery receipts for outbound messages. Only read
// receipts mutate state; ids this system never persisted are a no-op.
func (p *Processor) processStatus(ctx context.Context, status whatsapp.MessageStatus) {
	if status.Status != "read" || strings.TrimSpace(status.ID) == "" {
		return
	}
	if err := p.messages.MarkRead(ctx, status.ID, parseTimestamp(status.Timestamp)); err != nil {
		p.logger.Warn("apply read receipt failed",
			slog.String("message_id", status.ID),
			slog.Any("error", err),
		)
	}
}

func contactNames(contacts []whatsapp.Contact) map[string]string {
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		if strings.TrimSpace(c.Profile.Name) != "" {
			names[c.WaID] = c.Profile.Name
		}
	}
	return names
}

// parseTimestamp converts the provider's unix-seconds string; a missing or
// malformed value falls back to the receive time.
func parseTimestamp(ts string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
