package relay

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSignature indicates the capability token does not authorize the
// requested object, is malformed, or has expired.
var ErrInvalidSignature = errors.New("invalid or expired media signature")

const (
	claimKey  = "key"
	claimMime = "mime"
)

// URLSigner mints and verifies time-limited capability URLs for stored
// objects. The token is an HS256 JWT scoped to a single storage key.
type URLSigner struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
}

// NewURLSigner creates a signer. baseURL is the public base the media serve
// endpoint is reachable at; ttl bounds token lifetime.
func NewURLSigner(secret, baseURL string, ttl time.Duration) (*URLSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &URLSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
	}, nil
}

// Sign returns a read-only URL for the object at key, valid until the
// returned expiry.
func (s *URLSigner) Sign(key, mime string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		claimKey:  key,
		claimMime: mime,
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign media token: %w", err)
	}
	return fmt.Sprintf("%s/assets/%s?token=%s", s.baseURL, key, signed), expiresAt, nil
}

// Verify checks a capability token against the requested key and returns the
// MIME type recorded at signing time.
func (s *URLSigner) Verify(tokenString, key string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidSignature
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSignature
	}
	signedKey, _ := claims[claimKey].(string)
	if signedKey == "" || signedKey != key {
		return "", ErrInvalidSignature
	}
	mime, _ := claims[claimMime].(string)
	return mime, nil
}
