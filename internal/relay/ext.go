package relay

import (
	"path"
	"strings"
)

// extensionForMime maps a MIME type to the storage key file extension.
// Unrecognized types fall back to a generic binary extension instead of
// failing: the relay must never drop bytes over a content-type it has not
// seen before.
func extensionForMime(mime string) string {
	normalized := strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(normalized, ";"); i >= 0 {
		normalized = strings.TrimSpace(normalized[:i])
	}
	switch normalized {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	case "application/msword":
		return ".doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return ".pptx"
	case "application/zip":
		return ".zip"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/aac":
		return ".aac"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".weba"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}

// BuildKey computes the deterministic storage key for an asset. The owner
// namespace is the conversation counterparty, so per-contact media groups
// together regardless of message direction.
func BuildKey(ownerID, assetID, mime string) string {
	return path.Join(ownerID, assetID+extensionForMime(mime))
}
