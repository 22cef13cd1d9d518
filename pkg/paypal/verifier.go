package paypal

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sparkmeet/trialkit/pkg/cache"
)

// Header names on processor webhook transmissions.
const (
	HeaderTransmissionID   = "Paypal-Transmission-Id"
	HeaderTransmissionTime = "Paypal-Transmission-Time"
	HeaderTransmissionSig  = "Paypal-Transmission-Sig"
	HeaderCertURL          = "Paypal-Cert-Url"
	HeaderAuthAlgo         = "Paypal-Auth-Algo"
)

// TransmissionHeaders are the signature-bearing headers of one webhook
// delivery. All fields except AuthAlgo are required.
type TransmissionHeaders struct {
	TransmissionID   string
	TransmissionTime string
	CertURL          string
	Signature        string // base64
	AuthAlgo         string
}

// HeadersFromRequest extracts the transmission headers from an inbound
// webhook request.
func HeadersFromRequest(r *http.Request) TransmissionHeaders {
	return TransmissionHeaders{
		TransmissionID:   r.Header.Get(HeaderTransmissionID),
		TransmissionTime: r.Header.Get(HeaderTransmissionTime),
		CertURL:          r.Header.Get(HeaderCertURL),
		Signature:        r.Header.Get(HeaderTransmissionSig),
		AuthAlgo:         r.Header.Get(HeaderAuthAlgo),
	}
}

// certEntry is a fetched signing certificate with its intermediates.
type certEntry struct {
	leaf          *x509.Certificate
	intermediates *x509.CertPool
}

// Verifier authenticates webhook transmissions. Safe for concurrent use;
// concurrent verifications may race to populate the same cache entry, which
// is a harmless idempotent overwrite.
type Verifier struct {
	webhookID    string
	roots        *x509.CertPool // nil means system roots
	certs        *cache.LRUCache[string, certEntry]
	httpc        *http.Client
	allowedHosts []string
	log          *slog.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithRootCAs overrides the trusted processor roots. Defaults to the system
// pool, which the processor's public certificate chain terminates in.
func WithRootCAs(pool *x509.CertPool) VerifierOption {
	return func(v *Verifier) { v.roots = pool }
}

// WithCertHTTPClient replaces the client used to fetch signing certificates.
func WithCertHTTPClient(h *http.Client) VerifierOption {
	return func(v *Verifier) {
		if h != nil {
			v.httpc = h
		}
	}
}

// WithAllowedCertHosts restricts which hosts signing certificates may be
// fetched from. Matching is by exact host or dot-prefixed suffix.
func WithAllowedCertHosts(hosts ...string) VerifierOption {
	return func(v *Verifier) { v.allowedHosts = hosts }
}

// WithVerifierLogger supplies a logger. Defaults to slog.Default().
func WithVerifierLogger(l *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		if l != nil {
			v.log = l
		}
	}
}

// NewVerifier creates a webhook verifier for the configured webhook id.
// Certificates are cached per URL with the configured TTL; certificates
// rotate rarely, so a generous TTL is fine, but the bound keeps a
// misbehaving sender from growing the cache without limit.
func NewVerifier(cfg Config, opts ...VerifierOption) (*Verifier, error) {
	if cfg.WebhookID == "" {
		return nil, errors.New("paypal: webhook id is required")
	}

	ttl := cfg.CertCacheTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	v := &Verifier{
		webhookID:    cfg.WebhookID,
		certs:        cache.NewLRUCacheWithTTL[string, certEntry](32, ttl),
		httpc:        &http.Client{Timeout: timeout},
		allowedHosts: []string{"paypal.com"},
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify authenticates one webhook transmission against its raw body bytes.
// The body must be the exact bytes as transmitted; any upstream JSON decode
// must work on a copy. Any failure fails closed with an error wrapping
// ErrVerificationFailed.
func (v *Verifier) Verify(ctx context.Context, rawBody []byte, hdr TransmissionHeaders) error {
	if hdr.TransmissionID == "" || hdr.TransmissionTime == "" || hdr.CertURL == "" || hdr.Signature == "" {
		return errors.Join(ErrVerificationFailed, errors.New("missing transmission headers"))
	}
	if hdr.AuthAlgo != "" && hdr.AuthAlgo != "SHA256withRSA" {
		return errors.Join(ErrVerificationFailed, fmt.Errorf("unsupported auth algo %q", hdr.AuthAlgo))
	}

	entry, err := v.signingCert(ctx, hdr.CertURL)
	if err != nil {
		return errors.Join(ErrVerificationFailed, err)
	}

	roots := v.roots
	if _, err := entry.leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: entry.intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}); err != nil {
		return errors.Join(ErrVerificationFailed, ErrUntrustedCert, err)
	}

	pub, ok := entry.leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return errors.Join(ErrVerificationFailed, errors.New("signing certificate key is not RSA"))
	}

	sig, err := base64.StdEncoding.DecodeString(hdr.Signature)
	if err != nil {
		return errors.Join(ErrVerificationFailed, errors.New("signature is not valid base64"))
	}

	// Canonical signing string per the processor's webhook protocol:
	// transmission id | transmission time | webhook id | CRC-32 of raw body
	// (IEEE polynomial, decimal).
	signed := fmt.Sprintf("%s|%s|%s|%d",
		hdr.TransmissionID, hdr.TransmissionTime, v.webhookID, crc32.ChecksumIEEE(rawBody))

	digest := sha256.Sum256([]byte(signed))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		v.log.WarnContext(ctx, "webhook signature mismatch",
			"transmission_id", hdr.TransmissionID, "cert_url", hdr.CertURL)
		return errors.Join(ErrVerificationFailed, errors.New("signature mismatch"))
	}

	return nil
}

// signingCert returns the certificate for certURL, fetching on cache miss.
func (v *Verifier) signingCert(ctx context.Context, certURL string) (certEntry, error) {
	if entry, ok := v.certs.Get(certURL); ok {
		return entry, nil
	}

	entry, err := v.fetchCert(ctx, certURL)
	if err != nil {
		return certEntry{}, err
	}

	v.certs.Put(certURL, entry)
	return entry, nil
}

func (v *Verifier) fetchCert(ctx context.Context, certURL string) (certEntry, error) {
	u, err := url.Parse(certURL)
	if err != nil {
		return certEntry{}, errors.Join(ErrCertUnavailable, err)
	}
	if u.Scheme != "https" {
		return certEntry{}, errors.Join(ErrCertUnavailable, fmt.Errorf("cert url scheme %q not allowed", u.Scheme))
	}
	if !v.hostAllowed(u.Hostname()) {
		return certEntry{}, errors.Join(ErrCertUnavailable, fmt.Errorf("cert url host %q not allowed", u.Hostname()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return certEntry{}, errors.Join(ErrCertUnavailable, err)
	}

	resp, err := v.httpc.Do(req)
	if err != nil {
		return certEntry{}, errors.Join(ErrCertUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return certEntry{}, errors.Join(ErrCertUnavailable, fmt.Errorf("cert fetch status %d", resp.StatusCode))
	}

	pemBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return certEntry{}, errors.Join(ErrCertUnavailable, err)
	}

	return parseCertChain(pemBytes)
}

func (v *Verifier) hostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// parseCertChain decodes a PEM bundle into the leaf (first certificate) and
// a pool of intermediates (the rest).
func parseCertChain(pemBytes []byte) (certEntry, error) {
	var leaf *x509.Certificate
	intermediates := x509.NewCertPool()

	rest := pemBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return certEntry{}, errors.Join(ErrCertUnavailable, err)
		}
		if leaf == nil {
			leaf = cert
		} else {
			intermediates.AddCert(cert)
		}
	}

	if leaf == nil {
		return certEntry{}, errors.Join(ErrCertUnavailable, errors.New("no certificate in PEM response"))
	}

	return certEntry{leaf: leaf, intermediates: intermediates}, nil
}
