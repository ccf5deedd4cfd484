package certs

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestEnsureCertificates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")

	certPath, keyPath, err := EnsureCertificates(dir, "portal.cozyhome.ro", "10.1.2.3")
	if err != nil {
		t.Fatalf("EnsureCertificates: %v", err)
	}

	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadX509KeyPair: %v", err)
	}
	cert, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if !slices.Contains(cert.DNSNames, "portal.cozyhome.ro") || !slices.Contains(cert.DNSNames, "localhost") {
		t.Fatalf("unexpected DNS names: %v", cert.DNSNames)
	}
	if err := cert.VerifyHostname("10.1.2.3"); err != nil {
		t.Fatalf("ip SAN missing: %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("key permissions = %v", info.Mode().Perm())
	}

	before, _ := os.ReadFile(certPath)
	if _, _, err := EnsureCertificates(dir); err != nil {
		t.Fatalf("EnsureCertificates again: %v", err)
	}
	after, _ := os.ReadFile(certPath)
	if !bytes.Equal(before, after) {
		t.Fatalf("existing certificate was regenerated")
	}
}
