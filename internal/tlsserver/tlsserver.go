// Package tlsserver builds the TLS listener remotedeskd accepts viewer
// connections on, generating a self-signed certificate when none is
// configured on disk.
package tlsserver

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/remotedeskd/remotedeskd/internal/logging"
	"github.com/remotedeskd/remotedeskd/internal/secmem"
)

var log = logging.L("tlsserver")

const (
	certLifetime = 365 * 24 * time.Hour
	rsaBits      = 4096
)

// Listener wraps a TLS-terminated TCP listener. KeyPEM is kept behind a
// SecureString so a stack trace or accidental log.Info("%+v", ...) of the
// struct never prints private key material.
type Listener struct {
	net.Listener
	KeyPEM *secmem.SecureString
}

// Listen binds addr and wraps it with TLS using the cert/key at certPath/
// keyPath. If either path is empty or unreadable, a self-signed CN=localhost
// certificate is generated and (when both paths are set) persisted so
// restarts reuse it instead of invalidating pinned fingerprints every time.
func Listen(addr, certPath, keyPath string) (*Listener, error) {
	certPEM, keyPEM, err := loadOrGenerate(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("tlsserver: prepare certificate: %w", err)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("tlsserver: parse certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	inner, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tlsserver: listen %s: %w", addr, err)
	}

	log.Info("tls listener ready", "addr", addr)
	return &Listener{
		Listener: tls.NewListener(inner, cfg),
		KeyPEM:   secmem.NewSecureString(string(keyPEM)),
	}, nil
}

// Close zeroes the retained key material in addition to closing the socket.
func (l *Listener) Close() error {
	l.KeyPEM.Zero()
	return l.Listener.Close()
}

func loadOrGenerate(certPath, keyPath string) (certPEM, keyPEM []byte, err error) {
	if certPath != "" && keyPath != "" {
		certPEM, certErr := os.ReadFile(certPath)
		keyPEM, keyErr := os.ReadFile(keyPath)
		if certErr == nil && keyErr == nil {
			log.Info("loaded configured certificate", "cert_path", certPath)
			return certPEM, keyPEM, nil
		}
	}

	log.Warn("no usable certificate configured, generating a self-signed one")
	certPEM, keyPEM, err = GenerateSelfSigned("localhost")
	if err != nil {
		return nil, nil, err
	}

	if certPath != "" && keyPath != "" {
		if err := persist(certPath, certPEM, keyPath, keyPEM); err != nil {
			log.Warn("failed to persist generated certificate", "error", err)
		}
	}
	return certPEM, keyPEM, nil
}

// GenerateSelfSigned creates an openssl-compatible self-signed RSA-4096
// certificate valid for one year, PEM-encoded.
func GenerateSelfSigned(commonName string) (certPEM, keyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaBits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(certLifetime),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{commonName},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM, nil
}

func persist(certPath string, certPEM []byte, keyPath string, keyPEM []byte) error {
	if err := os.MkdirAll(filepath.Dir(certPath), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return err
	}
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return err
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return err
	}
	log.Info("persisted generated certificate", "cert_path", certPath, "key_path", keyPath)
	return nil
}
