package relay

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func tokenFromURL(t *testing.T, signed string) string {
	t.Helper()
	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	return u.Query().Get("token")
}

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	signer, err := NewURLSigner("secret-1", "http://localhost:8080", time.Hour)
	if err != nil {
		t.Fatalf("NewURLSigner: %v", err)
	}

	signed, expiresAt, err := signer.Sign("15551234567/123.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !strings.HasPrefix(signed, "http://localhost:8080/assets/15551234567/123.jpg?token=") {
		t.Errorf("url = %q", signed)
	}
	if until := time.Until(expiresAt); until < 59*time.Minute || until > time.Hour {
		t.Errorf("expiry %v is not about an hour out", expiresAt)
	}

	mime, err := signer.Verify(tokenFromURL(t, signed), "15551234567/123.jpg")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %q", mime)
	}
}

func TestVerifyRejectsKeyMismatch(t *testing.T) {
	t.Parallel()

	signer, err := NewURLSigner("secret-1", "http://localhost:8080", time.Hour)
	if err != nil {
		t.Fatalf("NewURLSigner: %v", err)
	}
	signed, _, err := signer.Sign("15551234567/123.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	_, err = signer.Verify(tokenFromURL(t, signed), "15551234567/456.jpg")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	t.Parallel()

	signerA, _ := NewURLSigner("secret-a", "http://localhost:8080", time.Hour)
	signerB, _ := NewURLSigner("secret-b", "http://localhost:8080", time.Hour)

	signed, _, err := signerA.Sign("owner/1.png", "image/png")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := signerB.Verify(tokenFromURL(t, signed), "owner/1.png"); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	signer, _ := NewURLSigner("secret-1", "http://localhost:8080", time.Hour)

	claims := jwt.MapClaims{
		"key":  "owner/1.png",
		"mime": "image/png",
		"iat":  time.Now().Add(-2 * time.Hour).Unix(),
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret-1"))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	if _, err := signer.Verify(expired, "owner/1.png"); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	signer, _ := NewURLSigner("secret-1", "http://localhost:8080", time.Hour)
	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := signer.Verify(token, "owner/1.png"); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("token %q: err = %v, want ErrInvalidSignature", token, err)
		}
	}
}

func TestNewURLSignerRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewURLSigner("", "http://localhost:8080", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestBuildKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		owner, asset, mime, want string
	}{
		{"15551234567", "123", "image/jpeg", "15551234567/123.jpg"},
		{"15551234567", "123", "image/png", "15551234567/123.png"},
		{"15551234567", "123", "application/pdf", "15551234567/123.pdf"},
		{"15551234567", "123", "audio/ogg", "15551234567/123.ogg"},
		{"15551234567", "123", "video/mp4", "15551234567/123.mp4"},
		{"15551234567", "123", "application/x-mystery", "15551234567/123.bin"},
		{"15551234567", "123", "", "15551234567/123.bin"},
	}
	for _, tt := range tests {
		if got := BuildKey(tt.owner, tt.asset, tt.mime); got != tt.want {
			t.Errorf("BuildKey(%q, %q, %q) = %q, want %q", tt.owner, tt.asset, tt.mime, got, tt.want)
		}
	}
}
