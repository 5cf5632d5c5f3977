package mosapi

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

func selfSignedCertAndKey(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func TestNewTransport_AcceptsRawPEM(t *testing.T) {
	certPEM, keyPEM := selfSignedCertAndKey(t)
	if _, err := NewTransport(TransportConfig{Cert: string(certPEM), Key: string(keyPEM)}, "https://example.test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewTransport_AcceptsBase64WrappedPEM(t *testing.T) {
	certPEM, keyPEM := selfSignedCertAndKey(t)
	encodedCert := base64.StdEncoding.EncodeToString(certPEM)
	encodedKey := base64.StdEncoding.EncodeToString(keyPEM)
	if _, err := NewTransport(TransportConfig{Cert: encodedCert, Key: encodedKey}, "https://example.test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewTransport_RejectsGarbage(t *testing.T) {
	if _, err := NewTransport(TransportConfig{Cert: "not pem or base64 ???", Key: "also not valid"}, "https://example.test"); err == nil {
		t.Fatal("expected an error for unparsable certificate material")
	}
}

func TestBuildURL_EncodesQueryParams(t *testing.T) {
	tr := &Transport{baseURL: "https://example.test"}
	url := tr.buildURL("/tld/example/metrica/list", map[string]string{"startDate": "2026-01-01", "endDate": "2026-01-31"})
	if url != "https://example.test/tld/example/metrica/list?endDate=2026-01-31&startDate=2026-01-01" {
		t.Fatalf("unexpected url: %s", url)
	}
}
