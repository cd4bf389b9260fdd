// Package whatsapp models the WhatsApp Business Cloud API webhook payloads
// and provides the inbound message normalizer and media client.
package whatsapp

// WebhookPayload mirrors the body POSTed by the provider's webhook callbacks.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one business-account entry within a delivery.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries the actual notification contents.
type Change struct {
	Value Value  `json:"value"`
	Field string `json:"field"`
}

// Value groups metadata, contacts, messages and statuses for one change.
type Value struct {
	MessagingProduct string          `json:"messaging_product"`
	Metadata         Metadata        `json:"metadata"`
	Contacts         []Contact       `json:"contacts,omitempty"`
	Messages         []Message       `json:"messages,omitempty"`
	Statuses         []MessageStatus `json:"statuses,omitempty"`
}

// Metadata identifies the business endpoint the event was delivered to.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the user on the other end of the conversation.
type Contact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

// ContactProfile holds the human-friendly contact name.
type ContactProfile struct {
	Name string `json:"name"`
}

// Message is one inbound provider message. Type selects which payload
// pointer is populated; unknown types leave all of them nil.
type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`

	Text     *Text  `json:"text,omitempty"`
	Image    *Media `json:"image,omitempty"`
	Document *Media `json:"document,omitempty"`
	Audio    *Media `json:"audio,omitempty"`
	Video    *Media `json:"video,omitempty"`
	Sticker  *Media `json:"sticker,omitempty"`
}

// Text is a plain text body.
type Text struct {
	Body string `json:"body"`
}

// Media is the shared attachment payload across image/document/audio/video/sticker.
type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Voice    bool   `json:"voice,omitempty"`
}

// MessageStatus is a delivery/read receipt for an outbound message.
type MessageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}
