package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type fakeProvider struct {
	objects map[string][]byte
	putErr  error
	puts    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{objects: map[string][]byte{}}
}

func (p *fakeProvider) Put(_ context.Context, key string, body io.Reader) error {
	p.puts++
	if p.putErr != nil {
		return p.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	p.objects[key] = data
	return nil
}

func (p *fakeProvider) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := p.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (p *fakeProvider) Exists(_ context.Context, key string) (bool, error) {
	_, ok := p.objects[key]
	return ok, nil
}

func (p *fakeProvider) Delete(_ context.Context, key string) error {
	delete(p.objects, key)
	return nil
}

type fakeFetcher struct {
	info         MediaInfo
	resolveErr   error
	downloadErr  error
	body         string
	resolveCalls int
}

func (f *fakeFetcher) ResolveMedia(_ context.Context, mediaID, _ string) (MediaInfo, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return MediaInfo{}, f.resolveErr
	}
	return f.info, nil
}

func (f *fakeFetcher) Download(_ context.Context, _, _ string) (io.ReadCloser, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func newTestSigner(t *testing.T) *URLSigner {
	t.Helper()
	signer, err := NewURLSigner("test-secret", "http://localhost:8080", time.Hour)
	if err != nil {
		t.Fatalf("NewURLSigner: %v", err)
	}
	return signer
}

func TestRelayStoresAndSigns(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	fetcher := &fakeFetcher{
		info: MediaInfo{URL: "https://lookaside.example/m/123456", MimeType: "image/jpeg"},
		body: "jpeg-bytes",
	}
	svc := NewService(nil, provider, fetcher, newTestSigner(t))

	res, err := svc.Relay(context.Background(), Input{
		OwnerID:     "15551234567",
		AssetID:     "123456",
		Mime:        "image/jpeg",
		AccessToken: "tok",
	})
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if res.StorageKey != "15551234567/123456.jpg" {
		t.Errorf("storage key = %q", res.StorageKey)
	}
	if got := provider.objects[res.StorageKey]; string(got) != "jpeg-bytes" {
		t.Errorf("stored bytes = %q", got)
	}
	if !strings.Contains(res.URL, "/assets/15551234567/123456.jpg?token=") {
		t.Errorf("signed url = %q", res.URL)
	}
	if !res.ExpiresAt.After(res.IssuedAt) {
		t.Errorf("expiry %v not after issue time %v", res.ExpiresAt, res.IssuedAt)
	}
}

func TestRelayMimeFallsBackToResolvedInfo(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	fetcher := &fakeFetcher{
		info: MediaInfo{URL: "https://lookaside.example/m/77", MimeType: "application/pdf"},
		body: "pdf-bytes",
	}
	svc := NewService(nil, provider, fetcher, newTestSigner(t))

	res, err := svc.Relay(context.Background(), Input{OwnerID: "15551234567", AssetID: "77", AccessToken: "tok"})
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if res.StorageKey != "15551234567/77.pdf" {
		t.Errorf("storage key = %q", res.StorageKey)
	}
}

func TestRelayRejectsMalformedAssetIDBeforeNetwork(t *testing.T) {
	t.Parallel()

	tests := []string{"abc", "12a", "../../etc/passwd", "12 34", ""}
	for _, id := range tests {
		fetcher := &fakeFetcher{}
		svc := NewService(nil, newFakeProvider(), fetcher, newTestSigner(t))

		_, err := svc.Relay(context.Background(), Input{OwnerID: "15551234567", AssetID: id, AccessToken: "tok"})
		if !errors.Is(err, ErrMalformedAssetID) {
			t.Errorf("id %q: err = %v, want ErrMalformedAssetID", id, err)
		}
		if fetcher.resolveCalls != 0 {
			t.Errorf("id %q: provider was contacted for a malformed id", id)
		}
	}
}

func TestRelayFetchFailureLeavesNoObject(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	fetcher := &fakeFetcher{resolveErr: errors.New("upstream 500")}
	svc := NewService(nil, provider, fetcher, newTestSigner(t))

	if _, err := svc.Relay(context.Background(), Input{OwnerID: "15551234567", AssetID: "42", AccessToken: "tok"}); err == nil {
		t.Fatal("expected error from resolve failure")
	}
	if provider.puts != 0 {
		t.Errorf("provider.Put was called after a failed fetch")
	}
}

func TestRelayDownloadFailureLeavesNoObject(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	fetcher := &fakeFetcher{
		info:        MediaInfo{URL: "https://lookaside.example/m/42", MimeType: "image/png"},
		downloadErr: errors.New("connection reset"),
	}
	svc := NewService(nil, provider, fetcher, newTestSigner(t))

	if _, err := svc.Relay(context.Background(), Input{OwnerID: "15551234567", AssetID: "42", AccessToken: "tok"}); err == nil {
		t.Fatal("expected error from download failure")
	}
	if provider.puts != 0 {
		t.Errorf("provider.Put was called after a failed download")
	}
}

func TestIssueSignedURL(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.objects["15551234567/88.png"] = []byte("png")
	svc := NewService(nil, provider, &fakeFetcher{}, newTestSigner(t))

	res, err := svc.IssueSignedURL(context.Background(), "15551234567", "88", "image/png")
	if err != nil {
		t.Fatalf("IssueSignedURL: %v", err)
	}
	if !strings.Contains(res.URL, "/assets/15551234567/88.png?token=") {
		t.Errorf("signed url = %q", res.URL)
	}
}

func TestIssueSignedURLMissingObject(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, newFakeProvider(), &fakeFetcher{}, newTestSigner(t))
	_, err := svc.IssueSignedURL(context.Background(), "15551234567", "88", "image/png")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("err = %v, want ErrObjectNotFound", err)
	}
}

func TestIssueSignedURLMalformedID(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, newFakeProvider(), &fakeFetcher{}, newTestSigner(t))
	_, err := svc.IssueSignedURL(context.Background(), "15551234567", "not-numeric", "image/png")
	if !errors.Is(err, ErrMalformedAssetID) {
		t.Errorf("err = %v, want ErrMalformedAssetID", err)
	}
}
