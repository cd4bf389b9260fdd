package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakeOpener struct {
	objects map[string][]byte
}

func (f *fakeOpener) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeVerifier struct {
	validToken string
	mime       string
}

func (f *fakeVerifier) Verify(token, key string) (string, error) {
	if token != f.validToken {
		return "", errors.New("invalid or expired media signature")
	}
	return f.mime, nil
}

func serveAsset(t *testing.T, h *AssetsHandler, owner, file, token string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	target := "/assets/" + owner + "/" + file
	if token != "" {
		target += "?token=" + token
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/assets/:owner/:file")
	c.SetParamNames("owner", "file")
	c.SetParamValues(owner, file)

	if err := h.Serve(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestServeAsset(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{objects: map[string][]byte{"15557654321/123.jpg": []byte("jpeg-bytes")}}
	h := NewAssetsHandler(discardLogger(), opener, &fakeVerifier{validToken: "good", mime: "image/jpeg"})

	rec := serveAsset(t, h, "15557654321", "123.jpg", "good")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/jpeg" {
		t.Errorf("content type = %q", ct)
	}
}

func TestServeAssetDenials(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{objects: map[string][]byte{"15557654321/123.jpg": []byte("jpeg-bytes")}}
	h := NewAssetsHandler(discardLogger(), opener, &fakeVerifier{validToken: "good", mime: "image/jpeg"})

	tests := []struct {
		name               string
		owner, file, token string
	}{
		{"missing token", "15557654321", "123.jpg", ""},
		{"wrong token", "15557654321", "123.jpg", "forged"},
		{"token for another key", "15557654321", "456.jpg", "forged"},
		{"missing owner", "", "123.jpg", "good"},
		{"missing file", "15557654321", "", "good"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serveAsset(t, h, tt.owner, tt.file, tt.token)
			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want uniform 403", rec.Code)
			}
		})
	}
}

func TestServeAssetMissingObject(t *testing.T) {
	t.Parallel()

	h := NewAssetsHandler(discardLogger(), &fakeOpener{objects: map[string][]byte{}},
		&fakeVerifier{validToken: "good", mime: "image/jpeg"})

	rec := serveAsset(t, h, "15557654321", "123.jpg", "good")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a valid token with no object", rec.Code)
	}
}

func TestServeAssetDefaultsMime(t *testing.T) {
	t.Parallel()

	opener := &fakeOpener{objects: map[string][]byte{"owner/1.bin": []byte("x")}}
	h := NewAssetsHandler(discardLogger(), opener, &fakeVerifier{validToken: "good", mime: ""})

	rec := serveAsset(t, h, "owner", "1.bin", "good")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/octet-stream" {
		t.Errorf("content type = %q", ct)
	}
}
