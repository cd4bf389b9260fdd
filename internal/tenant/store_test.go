package tenant

import (
	"regexp"
	"testing"
)

func TestNewWebhookSecret(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^[0-9a-f]{64}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		secret := NewWebhookSecret()
		if !pattern.MatchString(secret) {
			t.Fatalf("secret %q is not 64 hex chars", secret)
		}
		if seen[secret] {
			t.Fatalf("secret repeated: %q", secret)
		}
		seen[secret] = true
	}
}
