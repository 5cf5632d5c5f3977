package mosapi

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TransportConfig carries the material needed to build a mutually
// authenticated HTTP client for one MoSAPI certificate/key pair. Cert
// and Key may be raw PEM or the base64 encoding of PEM text (guard
// lines included); decodePEMBlock normalizes either form.
type TransportConfig struct {
	Cert    string
	Key     string
	Timeout time.Duration
}

// Transport wraps an mTLS-configured *http.Client and knows how to
// issue raw GET/POST calls against a MoSAPI base URL, transparently
// decompressing gzip/deflate response bodies.
type Transport struct {
	client  *http.Client
	baseURL string
}

// NewTransport builds a Transport from the given certificate material,
// using crypto/tls's X509KeyPair, the idiomatic stdlib way to do client
// mTLS in Go.
func NewTransport(cfg TransportConfig, baseURL string) (*Transport, error) {
	certPEM, err := decodePEMBlock(cfg.Cert)
	if err != nil {
		return nil, newErr(KindTransport, "decode client certificate", err)
	}
	keyPEM, err := decodePEMBlock(cfg.Key)
	if err != nil {
		return nil, newErr(KindTransport, "decode client key", err)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, newErr(KindTransport, "build X509 key pair", err)
	}
	if err := validateKeyAlgorithm(cert); err != nil {
		return nil, newErr(KindTransport, "validate key algorithm", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	return &Transport{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// decodePEMBlock accepts either a PEM blob with BEGIN/END guard lines
// already present, or a base64 string that decodes to such a blob, and
// returns PEM bytes suitable for tls.X509KeyPair. A bare base64 payload
// whose decoding carries no guard lines is rejected.
func decodePEMBlock(material string) ([]byte, error) {
	trimmed := strings.TrimSpace(material)
	if strings.Contains(trimmed, "-----BEGIN") {
		return []byte(trimmed), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("material is neither PEM nor base64: %w", err)
	}
	if strings.Contains(string(decoded), "-----BEGIN") {
		return decoded, nil
	}
	return nil, fmt.Errorf("decoded material has no PEM guard lines")
}

// validateKeyAlgorithm accepts RSA and EC private keys; it exists
// because the certificate-key pairing is never assumed to be RSA.
func validateKeyAlgorithm(cert tls.Certificate) error {
	switch cert.PrivateKey.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey:
		return nil
	default:
		return fmt.Errorf("unsupported private key type %T", cert.PrivateKey)
	}
}

// NewTransportFromClient builds a Transport around an already-configured
// *http.Client, bypassing certificate loading. It exists so other
// packages' tests can point an AuthenticatedClient at an httptest.Server
// without needing real mTLS material.
func NewTransportFromClient(client *http.Client, baseURL string) *Transport {
	return &Transport{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Do issues a raw HTTP request against the MoSAPI base URL, attaching
// extraHeaders, and returns the (decompressed) response body alongside
// the status code. It never interprets the body or status code itself;
// that is the AuthenticatedClient's job.
func (t *Transport) Do(ctx context.Context, method, path string, query map[string]string, body []byte, extraHeaders map[string]string) (int, http.Header, []byte, error) {
	url := t.buildURL(path, query)

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, nil, newErr(KindTransport, "build request", err)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, nil, newErr(KindTransport, "execute request", err)
	}
	defer resp.Body.Close()

	raw, err := decompress(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Header, nil, newErr(KindTransport, "decompress response", err)
	}
	return resp.StatusCode, resp.Header, raw, nil
}

func decompress(encoding string, r io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	case "deflate":
		// "deflate" responses are conventionally zlib-wrapped (RFC 1950)
		// despite the header name; fall back to raw DEFLATE (RFC 1951)
		// for the servers that send that instead.
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			return io.ReadAll(zr)
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return io.ReadAll(fr)
	default:
		return io.ReadAll(r)
	}
}

func (t *Transport) buildURL(path string, query map[string]string) string {
	u := t.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) == 0 {
		return u
	}
	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	return u + "?" + values.Encode()
}
