package wsproto

import (
	"net/http"
	"testing"
)

func TestAcceptKey_KnownAnswer(t *testing.T) {
	// The example key/accept pair from RFC 6455 section 1.3.
	const key = "dGhlIHNhbXBsZSBub25jZQ=="
	const want = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="

	if got := AcceptKey(key); got != want {
		t.Fatalf("AcceptKey(%q) = %q, want %q", key, got, want)
	}
}

func TestValidateUpgrade_Accepts(t *testing.T) {
	h := http.Header{}
	h.Set("Upgrade", "websocket")
	h.Set("Connection", "Upgrade")
	h.Set("Sec-WebSocket-Version", "13")
	h.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	key, err := ValidateUpgrade(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "dGhlIHNhbXBsZSBub25jZQ==" {
		t.Fatalf("unexpected key: %q", key)
	}
}

func TestValidateUpgrade_RejectsMissingFields(t *testing.T) {
	cases := []http.Header{
		{"Connection": []string{"Upgrade"}, "Sec-WebSocket-Version": []string{"13"}, "Sec-WebSocket-Key": []string{"x"}},
		{"Upgrade": []string{"websocket"}, "Sec-WebSocket-Version": []string{"13"}, "Sec-WebSocket-Key": []string{"x"}},
		{"Upgrade": []string{"websocket"}, "Connection": []string{"Upgrade"}, "Sec-WebSocket-Key": []string{"x"}},
		{"Upgrade": []string{"websocket"}, "Connection": []string{"Upgrade"}, "Sec-WebSocket-Version": []string{"13"}},
	}
	for i, h := range cases {
		if _, err := ValidateUpgrade(h); err != ErrNotUpgrade {
			t.Fatalf("case %d: expected ErrNotUpgrade, got %v", i, err)
		}
	}
}
