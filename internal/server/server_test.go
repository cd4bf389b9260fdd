package server

import "testing"

func TestShouldSkipJWT(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"/ping", true},
		{"/health", true},
		{"/webhook/some-secret", true},
		{"/assets/15557654321/123.jpg", true},
		{"/media/refresh", false},
		{"/conversations", false},
		{"/webhook", false},
		{"/", false},
	}
	for _, tt := range tests {
		if got := shouldSkipJWT(tt.path); got != tt.want {
			t.Errorf("shouldSkipJWT(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
