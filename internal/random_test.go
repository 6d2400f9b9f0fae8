package internal

import (
	"encoding/base64"
	"testing"
)

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(a)
	if err != nil || len(raw) != 32 {
		t.Fatalf("expected 32 raw bytes, got %d (%v)", len(raw), err)
	}

	b, err := RandomToken(32)
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens")
	}

	if _, err := RandomToken(0); err == nil {
		t.Fatal("expected zero size to fail")
	}
}
