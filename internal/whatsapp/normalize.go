package whatsapp

import (
	"fmt"
	"strings"

	"github.com/courierhq/courier/internal/message"
)

// Normalized is the result of mapping one inbound provider message into the
// persisted schema: display content, type tag, and an optional media
// descriptor with relay status pending.
type Normalized struct {
	DisplayContent string
	Type           message.Type
	Media          *message.MediaDescriptor
}

// Normalize maps an inbound message to its normalized form. The mapping is
// total: every type tag, including ones this system has never seen, yields a
// defined result. It performs no I/O; the caller decides whether to relay
// any attached media.
func Normalize(msg Message) Normalized {
	switch msg.Type {
	case "text":
		body := ""
		if msg.Text != nil {
			body = msg.Text.Body
		}
		return Normalized{DisplayContent: body, Type: message.TypeText}

	case "image":
		return Normalized{
			DisplayContent: captionOr(msg.Image, "[Image]"),
			Type:           message.TypeImage,
			Media:          descriptor(msg.Image),
		}

	case "document":
		filename := "Unknown"
		if msg.Document != nil && strings.TrimSpace(msg.Document.Filename) != "" {
			filename = msg.Document.Filename
		}
		return Normalized{
			DisplayContent: fmt.Sprintf("[Document: %s]", filename),
			Type:           message.TypeDocument,
			Media:          descriptor(msg.Document),
		}

	case "audio":
		content := "[Audio]"
		if msg.Audio != nil && msg.Audio.Voice {
			content = "[Voice Message]"
		}
		return Normalized{
			DisplayContent: content,
			Type:           message.TypeAudio,
			Media:          descriptor(msg.Audio),
		}

	case "video":
		return Normalized{
			DisplayContent: captionOr(msg.Video, "[Video]"),
			Type:           message.TypeVideo,
			Media:          descriptor(msg.Video),
		}

	case "sticker":
		return Normalized{
			DisplayContent: "[Sticker]",
			Type:           message.TypeSticker,
			Media:          descriptor(msg.Sticker),
		}

	default:
		return Normalized{
			DisplayContent: fmt.Sprintf("[Unsupported message type: %s]", msg.Type),
			Type:           message.TypeText,
		}
	}
}

func captionOr(media *Media, fallback string) string {
	if media != nil && strings.TrimSpace(media.Caption) != "" {
		return media.Caption
	}
	return fallback
}

func descriptor(media *Media) *message.MediaDescriptor {
	if media == nil {
		return nil
	}
	return &message.MediaDescriptor{
		MediaID:     media.ID,
		Mime:        media.MimeType,
		SHA256:      media.SHA256,
		Filename:    media.Filename,
		Caption:     media.Caption,
		Voice:       media.Voice,
		RelayStatus: message.RelayPending,
	}
}
