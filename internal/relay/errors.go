package relay

import "errors"

var (
	// ErrMalformedAssetID indicates the provider media id cannot form a safe
	// storage key; the relay rejects it before any network call.
	ErrMalformedAssetID = errors.New("malformed asset id")
	// ErrObjectNotFound indicates no stored object exists at the asset's key.
	ErrObjectNotFound = errors.New("stored object not found")
	// ErrProviderUnavailable indicates the storage provider is not configured.
	ErrProviderUnavailable = errors.New("storage provider unavailable")
)
