package tlsserver

import (
	"crypto/tls"
	"crypto/x509"
	"testing"
	"time"
)

func TestGenerateSelfSigned_ParsesAndMatchesCommonName(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSigned("localhost")
	if err != nil {
		t.Fatalf("GenerateSelfSigned: %v", err)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("X509KeyPair: %v", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if leaf.Subject.CommonName != "localhost" {
		t.Fatalf("CommonName = %q, want localhost", leaf.Subject.CommonName)
	}
	if time.Until(leaf.NotAfter) < 360*24*time.Hour {
		t.Fatalf("certificate lifetime too short: expires %v", leaf.NotAfter)
	}
}

func TestTokenChecker_EmptyTokenDisablesAuth(t *testing.T) {
	c, err := NewTokenChecker("")
	if err != nil {
		t.Fatalf("NewTokenChecker: %v", err)
	}
	if !c.Check("anything") {
		t.Fatal("empty configured token should accept any presented value")
	}
}

func TestTokenChecker_RejectsWrongToken(t *testing.T) {
	c, err := NewTokenChecker("correct-secret")
	if err != nil {
		t.Fatalf("NewTokenChecker: %v", err)
	}
	if c.Check("wrong-secret") {
		t.Fatal("expected mismatch to be rejected")
	}
	if !c.Check("correct-secret") {
		t.Fatal("expected matching token to be accepted")
	}
}
