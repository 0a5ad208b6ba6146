// Package httpclient builds the outbound HTTP client used by the fetcher
// and connectors. The client never follows redirects on its own; redirect
// handling is owned by the fetch package so every hop is re-validated.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Config holds settings for the outbound HTTP client.
type Config struct {
	Timeout   time.Duration
	Headers   http.Header
	UserAgent string
	// ServerName overrides TLS SNI and certificate verification. Required
	// when the URL authority carries a pinned IP instead of the hostname.
	ServerName string
	Insecure   bool
}

// headerRoundTripper wraps a base RoundTripper to inject default headers.
type headerRoundTripper struct {
	base      http.RoundTripper
	headers   http.Header
	userAgent string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if h.base == nil {
		h.base = http.DefaultTransport
	}

	// Clone the request to avoid mutating the caller's copy.
	r := req.Clone(req.Context())
	for k, vs := range h.headers {
		r.Header.Del(k)
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if h.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", h.userAgent)
	}
	return h.base.RoundTrip(r)
}

// New returns a configured HTTP client with automatic redirects disabled.
func New(cfg Config) *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			ServerName:         cfg.ServerName,
			InsecureSkipVerify: cfg.Insecure,
		},
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		IdleConnTimeout:   90 * time.Second,
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: &headerRoundTripper{
			base:      transport,
			headers:   cfg.Headers,
			userAgent: cfg.UserAgent,
		},
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// prevent automatic redirects
			return http.ErrUseLastResponse
		},
	}
}
