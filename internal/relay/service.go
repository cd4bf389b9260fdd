// Package relay copies provider-hosted transient media into durable storage
// and issues time-limited signed read URLs for stored objects.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Provider media ids are numeric; anything else cannot form a safe storage key.
var assetIDPattern = regexp.MustCompile(`^[0-9]+$`)

// Service is the object relay.
type Service struct {
	provider StorageProvider
	fetcher  MediaFetcher
	signer   *URLSigner
	logger   *slog.Logger
}

// NewService creates a relay service.
func NewService(log *slog.Logger, provider StorageProvider, fetcher MediaFetcher, signer *URLSigner) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		provider: provider,
		fetcher:  fetcher,
		signer:   signer,
		logger:   log.With(slog.String("service", "relay")),
	}
}

// Relay fetches one asset from the provider and stores it under its
// deterministic key, returning a signed read reference. The asset id is
// validated before any network call. Failures leave no partial writes; the
// caller persists the message either way and records the failure on the
// descriptor.
func (s *Service) Relay(ctx context.Context, input Input) (Result, error) {
	if s.provider == nil {
		return Result{}, ErrProviderUnavailable
	}
	if strings.TrimSpace(input.OwnerID) == "" {
		return Result{}, fmt.Errorf("owner id is required")
	}
	if !assetIDPattern.MatchString(input.AssetID) {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformedAssetID, input.AssetID)
	}

	info, err := s.fetcher.ResolveMedia(ctx, input.AssetID, input.AccessToken)
	if err != nil {
		return Result{}, fmt.Errorf("resolve media %s: %w", input.AssetID, err)
	}
	mime := input.Mime
	if strings.TrimSpace(mime) == "" {
		mime = info.MimeType
	}

	body, err := s.fetcher.Download(ctx, info.URL, input.AccessToken)
	if err != nil {
		return Result{}, fmt.Errorf("download media %s: %w", input.AssetID, err)
	}
	defer body.Close()

	key := BuildKey(input.OwnerID, input.AssetID, mime)
	if err := s.provider.Put(ctx, key, body); err != nil {
		return Result{}, fmt.Errorf("store media %s: %w", input.AssetID, err)
	}

	url, expiresAt, err := s.signer.Sign(key, mime)
	if err != nil {
		return Result{}, fmt.Errorf("sign media url: %w", err)
	}
	s.logger.Info("media relayed",
		slog.String("key", key),
		slog.String("mime", mime),
	)
	return Result{
		StorageKey: key,
		URL:        url,
		IssuedAt:   expiresAt.Add(-s.signer.ttl),
		ExpiresAt:  expiresAt,
	}, nil
}

// IssueSignedURL re-signs a fresh read reference for an object already known
// to exist at its deterministic key. It never re-fetches from the origin
// provider; a missing object is reported as ErrObjectNotFound.
func (s *Service) IssueSignedURL(ctx context.Context, ownerID, assetID, mime string) (Result, error) {
	if s.provider == nil {
		return Result{}, ErrProviderUnavailable
	}
	if !assetIDPattern.MatchString(assetID) {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformedAssetID, assetID)
	}
	key := BuildKey(ownerID, assetID, mime)
	exists, err := s.provider.Exists(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("check stored object: %w", err)
	}
	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	url, expiresAt, err := s.signer.Sign(key, mime)
	if err != nil {
		return Result{}, fmt.Errorf("sign media url: %w", err)
	}
	return Result{
		StorageKey: key,
		URL:        url,
		IssuedAt:   expiresAt.Add(-s.signer.ttl),
		ExpiresAt:  expiresAt,
	}, nil
}
