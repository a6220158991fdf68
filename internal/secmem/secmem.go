// Package secmem holds sensitive in-memory values — TLS private key PEM
// data, session tokens — behind a type that refuses to print itself and
// best-effort zeroes its backing array on demand.
package secmem

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

const redacted = "[REDACTED]"

// SecureString holds sensitive data with best-effort memory zeroing. Go's
// GC may copy or retain the backing array elsewhere, so this is
// defense-in-depth against accidental logging and serialization, not a
// guarantee against memory disclosure. Call Zero() in shutdown paths.
type SecureString struct {
	mu         sync.Mutex
	data       []byte
	warnedOnce atomic.Bool
}

// NewSecureString creates a SecureString from the given string.
func NewSecureString(s string) *SecureString {
	b := make([]byte, len(s))
	copy(b, s)
	return &SecureString{data: b}
}

// Reveal returns the plaintext value. Returns "" for a nil receiver or
// after Zero has been called; the first such call after Zero flips
// warnedOnce so callers can detect use-after-zero bugs.
func (s *SecureString) Reveal() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.warnedOnce.CompareAndSwap(false, true)
		return ""
	}
	return string(s.data)
}

// IsZeroed reports whether Zero has been called.
func (s *SecureString) IsZeroed() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data == nil
}

// Zero overwrites the backing byte slice with zeros and releases it.
func (s *SecureString) Zero() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data {
		s.data[i] = 0
	}
	s.data = nil
}

// String always returns a redacted placeholder so %s/%v formatting and
// accidental string concatenation never leak the value.
func (s *SecureString) String() string { return redacted }

// GoString redacts the %#v verb.
func (s *SecureString) GoString() string { return redacted }

// MarshalJSON redacts the value when a SecureString is embedded in a
// struct that gets logged or serialized as JSON.
func (s *SecureString) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// MarshalText redacts the value for encoding.TextMarshaler consumers.
func (s *SecureString) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// UnmarshalJSON always fails: a SecureString is produced by NewSecureString
// from a trusted source, never decoded from untrusted JSON.
func (s *SecureString) UnmarshalJSON([]byte) error {
	return fmt.Errorf("secmem: SecureString cannot be unmarshaled from JSON")
}
