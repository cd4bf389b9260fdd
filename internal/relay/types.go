package relay

import (
	"context"
	"io"
	"time"
)

// StorageProvider abstracts durable object storage operations.
type StorageProvider interface {
	// Put writes data to storage under the given key. A failed Put must not
	// leave a partial object behind.
	Put(ctx context.Context, key string, reader io.Reader) error
	// Open returns a reader for the given storage key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}

// MediaFetcher resolves a provider media id to a transient URL and downloads
// its bytes.
type MediaFetcher interface {
	ResolveMedia(ctx context.Context, mediaID, accessToken string) (MediaInfo, error)
	Download(ctx context.Context, url, accessToken string) (io.ReadCloser, error)
}

// MediaInfo mirrors the provider's media-id lookup result.
type MediaInfo struct {
	URL      string
	MimeType string
	SHA256   string
	FileSize int64
}

// Input identifies one asset to relay from the provider's transient storage.
type Input struct {
	// OwnerID is the conversation counterparty, the storage namespace.
	OwnerID string
	// AssetID is the provider media id; must be numeric.
	AssetID string
	Mime    string
	// AccessToken is the owning tenant's provider bearer credential.
	AccessToken string
}

// Result is a durable reference to a relayed asset.
type Result struct {
	StorageKey string
	URL        string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}
