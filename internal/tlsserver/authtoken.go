package tlsserver

import (
	"golang.org/x/crypto/bcrypt"
)

// TokenChecker verifies a viewer-supplied auth token against a configured
// secret without keeping the plaintext secret around longer than startup.
type TokenChecker struct {
	hash []byte
}

// NewTokenChecker hashes token once at startup. An empty token means auth
// is disabled; Check always returns true in that case.
func NewTokenChecker(token string) (*TokenChecker, error) {
	if token == "" {
		return &TokenChecker{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &TokenChecker{hash: hash}, nil
}

// Check reports whether presented matches the configured token.
func (c *TokenChecker) Check(presented string) bool {
	if len(c.hash) == 0 {
		return true
	}
	if presented == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(presented)) == nil
}
