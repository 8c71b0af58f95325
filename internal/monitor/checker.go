package monitor

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"pewwatch/internal/endpoint"
	"pewwatch/internal/notify"
)

const (
	defaultCheckTimeout = 15 * time.Second
	maxMatchBody        = 1 << 20
)

// Check errors are user-facing sentences; the down message quotes them as is.
var errKeywordMissing = errors.New("The keyword match was not found.")

// TLSError wraps a certificate verification failure and describes the
// presented chain.
type TLSError struct {
	Err   error
	Certs []*x509.Certificate
}

func (e *TLSError) Error() string {
	return "The TLS certificate could not be verified: " + strings.TrimSpace(e.Err.Error())
}

func (e *TLSError) Unwrap() error { return e.Err }

// Details lists the peer certificates and the verification error.
func (e *TLSError) Details() string {
	var b strings.Builder
	for i, c := range e.Certs {
		fmt.Fprintf(&b, "Certificate %d\n", i)
		fmt.Fprintf(&b, "  Subject: %s\n", c.Subject.String())
		fmt.Fprintf(&b, "  Issuer: %s\n", c.Issuer.String())
		fmt.Fprintf(&b, "  Valid: %s to %s\n",
			c.NotBefore.UTC().Format(time.RFC3339), c.NotAfter.UTC().Format(time.RFC3339))
		if len(c.DNSNames) > 0 {
			fmt.Fprintf(&b, "  DNS: %s\n", strings.Join(c.DNSNames, ", "))
		}
	}
	fmt.Fprintf(&b, "Error: %v\n", e.Err)
	return b.String()
}

// Checker performs HTTP checks.
type Checker struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

type CheckerConfig struct {
	Timeout   time.Duration
	UserAgent string

	// Transport overrides the HTTP transport. Nil clones http.DefaultTransport.
	Transport http.RoundTripper
}

func NewChecker(cfg CheckerConfig) *Checker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "pewwatch"
	}
	rt := cfg.Transport
	if rt == nil {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &Checker{
		client: &http.Client{
			Transport: rt,
			Timeout:   timeout,
		},
		userAgent: ua,
		timeout:   timeout,
	}
}

// Check runs one GET against ep and reports the outcome.
func (c *Checker) Check(ctx context.Context, ep endpoint.Endpoint) notify.CheckResult {
	start := time.Now()
	res := notify.CheckResult{Endpoint: ep, At: start}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.Location, nil)
	if err != nil {
		res.Err = fmt.Errorf("The request could not be built: %w", err)
		return res
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	res.Took = time.Since(start)
	if err != nil {
		res.Err = classify(err)
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	if !ep.AcceptsStatus(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		res.Err = fmt.Errorf("Unexpected status code %d.", resp.StatusCode)
		return res
	}

	if ep.ResponseMatch != "" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxMatchBody))
		res.Took = time.Since(start)
		if err != nil {
			res.Err = fmt.Errorf("The response body could not be read: %w", err)
			return res
		}
		if !bytes.Contains(body, []byte(ep.ResponseMatch)) {
			res.Err = errKeywordMissing
		}
	}
	return res
}

func classify(err error) error {
	var (
		netErr      net.Error
		unknownAuth x509.UnknownAuthorityError
		hostname    x509.HostnameError
		invalid     x509.CertificateInvalidError
		verify      *tls.CertificateVerificationError
	)
	switch {
	case errors.As(err, &verify):
		return &TLSError{Err: verify.Err, Certs: verify.UnverifiedCertificates}
	case errors.As(err, &unknownAuth):
		return &TLSError{Err: unknownAuth, Certs: []*x509.Certificate{unknownAuth.Cert}}
	case errors.As(err, &hostname):
		return &TLSError{Err: hostname, Certs: []*x509.Certificate{hostname.Certificate}}
	case errors.As(err, &invalid):
		return &TLSError{Err: invalid, Certs: []*x509.Certificate{invalid.Cert}}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return errors.New("The request timed out.")
	default:
		return err
	}
}

var _ notify.Detailer = (*TLSError)(nil)
