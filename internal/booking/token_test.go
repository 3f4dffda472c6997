package booking

import (
	"strings"
	"testing"
	"time"
)

func TestNewTokenStringIsOpaqueAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		value, err := newTokenString()
		if err != nil {
			t.Fatalf("token generation: %v", err)
		}
		if len(value) < 40 {
			t.Fatalf("token %q too short for %d bytes of entropy", value, tokenBytes)
		}
		if strings.ContainsAny(value, "+/=") {
			t.Fatalf("token %q is not URL-safe", value)
		}
		if _, dup := seen[value]; dup {
			t.Fatalf("duplicate token %q", value)
		}
		seen[value] = struct{}{}
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now().UTC()
	token := &Token{ExpiresAt: now.Add(time.Hour)}
	if token.Expired(now) {
		t.Fatal("token inside its window must not be expired")
	}
	// Expiry boundary is exclusive: now == expires_at is expired.
	if !token.Expired(now.Add(time.Hour)) {
		t.Fatal("token at its expiry instant must be expired")
	}
	if !token.Expired(now.Add(2 * time.Hour)) {
		t.Fatal("token past its window must be expired")
	}
}
