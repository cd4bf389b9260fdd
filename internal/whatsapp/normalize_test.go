package whatsapp

import (
	"strings"
	"testing"

	"github.com/courierhq/courier/internal/message"
)

func TestNormalize_Text(t *testing.T) {
	t.Parallel()

	got := Normalize(Message{Type: "text", Text: &Text{Body: "hello there"}})
	if got.DisplayContent != "hello there" {
		t.Fatalf("unexpected content: %q", got.DisplayContent)
	}
	if got.Type != message.TypeText {
		t.Fatalf("unexpected type: %q", got.Type)
	}
	if got.Media != nil {
		t.Fatalf("text message must not carry a media descriptor")
	}
}

func TestNormalize_MediaTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		msg         Message
		wantContent string
		wantType    message.Type
		wantMediaID string
	}{
		{
			name:        "image with caption",
			msg:         Message{Type: "image", Image: &Media{ID: "111", MimeType: "image/jpeg", Caption: "look at this"}},
			wantContent: "look at this",
			wantType:    message.TypeImage,
			wantMediaID: "111",
		},
		{
			name:        "image without caption",
			msg:         Message{Type: "image", Image: &Media{ID: "111", MimeType: "image/jpeg"}},
			wantContent: "[Image]",
			wantType:    message.TypeImage,
			wantMediaID: "111",
		},
		{
			name:        "document with filename",
			msg:         Message{Type: "document", Document: &Media{ID: "222", MimeType: "application/pdf", Filename: "report.pdf"}},
			wantContent: "[Document: report.pdf]",
			wantType:    message.TypeDocument,
			wantMediaID: "222",
		},
		{
			name:        "document without filename",
			msg:         Message{Type: "document", Document: &Media{ID: "222", MimeType: "application/pdf"}},
			wantContent: "[Document: Unknown]",
			wantType:    message.TypeDocument,
			wantMediaID: "222",
		},
		{
			name:        "voice note",
			msg:         Message{Type: "audio", Audio: &Media{ID: "333", MimeType: "audio/ogg", Voice: true}},
			wantContent: "[Voice Message]",
			wantType:    message.TypeAudio,
			wantMediaID: "333",
		},
		{
			name:        "plain audio",
			msg:         Message{Type: "audio", Audio: &Media{ID: "333", MimeType: "audio/mpeg"}},
			wantContent: "[Audio]",
			wantType:    message.TypeAudio,
			wantMediaID: "333",
		},
		{
			name:        "video with caption",
			msg:         Message{Type: "video", Video: &Media{ID: "444", MimeType: "video/mp4", Caption: "clip"}},
			wantContent: "clip",
			wantType:    message.TypeVideo,
			wantMediaID: "444",
		},
		{
			name:        "video without caption",
			msg:         Message{Type: "video", Video: &Media{ID: "444", MimeType: "video/mp4"}},
			wantContent: "[Video]",
			wantType:    message.TypeVideo,
			wantMediaID: "444",
		},
		{
			name:        "sticker",
			msg:         Message{Type: "sticker", Sticker: &Media{ID: "555", MimeType: "image/webp"}},
			wantContent: "[Sticker]",
			wantType:    message.TypeSticker,
			wantMediaID: "555",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tt.msg)
			if got.DisplayContent != tt.wantContent {
				t.Errorf("content = %q, want %q", got.DisplayContent, tt.wantContent)
			}
			if got.Type != tt.wantType {
				t.Errorf("type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Media == nil {
				t.Fatalf("expected media descriptor")
			}
			if got.Media.MediaID != tt.wantMediaID {
				t.Errorf("media id = %q, want %q", got.Media.MediaID, tt.wantMediaID)
			}
			if got.Media.RelayStatus != message.RelayPending {
				t.Errorf("relay status = %q, want pending", got.Media.RelayStatus)
			}
		})
	}
}

func TestNormalize_UnknownTypeIsTotal(t *testing.T) {
	t.Parallel()

	for _, unknown := range []string{"reaction", "location", "contacts", "order", ""} {
		got := Normalize(Message{Type: unknown})
		if got.Media != nil {
			t.Errorf("type %q: unexpected media descriptor", unknown)
		}
		if !strings.HasPrefix(got.DisplayContent, "[Unsupported message type:") {
			t.Errorf("type %q: unexpected content %q", unknown, got.DisplayContent)
		}
	}
}

func TestNormalize_TextWithNilPayload(t *testing.T) {
	t.Parallel()

	got := Normalize(Message{Type: "text"})
	if got.DisplayContent != "" || got.Type != message.TypeText || got.Media != nil {
		t.Fatalf("unexpected result: %+v", got)
	}
}
