package message

import "time"

// Type classifies a normalized message.
type Type string

const (
	TypeText     Type = "text"
	TypeImage    Type = "image"
	TypeDocument Type = "document"
	TypeAudio    Type = "audio"
	TypeVideo    Type = "video"
	TypeSticker  Type = "sticker"
	TypeTemplate Type = "template"
)

// RelayStatus tracks whether an attachment made it into durable storage.
type RelayStatus string

const (
	RelayPending  RelayStatus = "pending"
	RelayUploaded RelayStatus = "uploaded"
	RelayFailed   RelayStatus = "failed"
)

// MediaDescriptor is embedded in a message when it carries an attachment.
// RelayStatus reflects whether StorageKey points at a stored object.
type MediaDescriptor struct {
	MediaID     string      `json:"media_id"`
	Mime        string      `json:"mime"`
	SHA256      string      `json:"sha256,omitempty"`
	Filename    string      `json:"filename,omitempty"`
	Caption     string      `json:"caption,omitempty"`
	Voice       bool        `json:"voice,omitempty"`
	RelayStatus RelayStatus `json:"relay_status"`
	StorageKey  string      `json:"storage_key,omitempty"`
	URL         string      `json:"url,omitempty"`
	URLIssuedAt time.Time   `json:"url_issued_at,omitempty"`
	UploadError string      `json:"upload_error,omitempty"`
}

// Message is the durable normalized record. ID is the provider-assigned
// message id and doubles as the idempotency key.
type Message struct {
	ID         string           `json:"id"`
	TenantID   string           `json:"tenant_id"`
	SenderID   string           `json:"sender_id"`
	ReceiverID string           `json:"receiver_id"`
	Content    string           `json:"content"`
	Type       Type             `json:"type"`
	FromMe     bool             `json:"from_me"`
	Read       bool             `json:"read"`
	ReadAt     *time.Time       `json:"read_at,omitempty"`
	SentAt     time.Time        `json:"sent_at"`
	Media      *MediaDescriptor `json:"media,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Counterparty returns the non-tenant side of the conversation. This is the
// owner namespace used for relayed media, so per-contact assets group
// together regardless of direction.
func (m Message) Counterparty() string {
	if m.FromMe {
		return m.ReceiverID
	}
	return m.SenderID
}

// Conversation is the read-side aggregate for one tenant/counterparty pair.
// It is recomputed from message rows and has no independent lifecycle.
type Conversation struct {
	Counterparty string    `json:"counterparty"`
	Name         string    `json:"name,omitempty"`
	LastMessage  Message   `json:"last_message"`
	UnreadCount  int       `json:"unread_count"`
	LastActivity time.Time `json:"last_activity"`
}
