// Package certs provisions the self-signed certificate used when the
// portal serves TLS directly.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	certFileName = "server.crt"
	keyFileName  = "server.key"
	validFor     = 2 * 365 * 24 * time.Hour
)

// EnsureCertificates returns the certificate and key in certDir, creating a
// self-signed pair when either file is missing. hosts are added to the
// certificate as DNS names or IP addresses.
func EnsureCertificates(certDir string, hosts ...string) (certPath, keyPath string, err error) {
	certPath = filepath.Join(certDir, certFileName)
	keyPath = filepath.Join(certDir, keyFileName)

	if exists(certPath) && exists(keyPath) {
		return certPath, keyPath, nil
	}

	if err := os.MkdirAll(certDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create cert directory: %w", err)
	}
	if err := generateSelfSignedCert(certPath, keyPath, hosts, time.Now()); err != nil {
		return "", "", fmt.Errorf("failed to generate certificates: %w", err)
	}
	return certPath, keyPath, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func certTemplate(hosts []string, now time.Time) (*x509.Certificate, error) {
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"CozyHome"},
			Country:      []string{"RO"},
			CommonName:   "CozyHome Firm Portal",
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validFor),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost", "cozyhome.local"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}
	if hostname, _ := os.Hostname(); hostname != "" {
		tmpl.DNSNames = append(tmpl.DNSNames, hostname)
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else if h != "" {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}
	return tmpl, nil
}

func generateSelfSignedCert(certPath, keyPath string, hosts []string, now time.Time) error {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	tmpl, err := certTemplate(hosts, now)
	if err != nil {
		return err
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	if err := writePEM(keyPath, 0o600, "EC PRIVATE KEY", keyDER); err != nil {
		return err
	}
	return writePEM(certPath, 0o644, "CERTIFICATE", certDER)
}

func writePEM(path string, perm os.FileMode, blockType string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
