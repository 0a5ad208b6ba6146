package ssrf

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func fakeLookup(answers map[string][]string) LookupFunc {
	return func(_ context.Context, host string) ([]net.IPAddr, error) {
		ips, ok := answers[host]
		if !ok {
			return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
		}
		out := make([]net.IPAddr, 0, len(ips))
		for _, s := range ips {
			out = append(out, net.IPAddr{IP: net.ParseIP(s)})
		}
		return out, nil
	}
}

func newTestValidator(answers map[string][]string) *Validator {
	v := NewValidator(nil, zap.NewNop())
	v.Lookup = fakeLookup(answers)
	return v
}

func TestValidateBlockedHostnames(t *testing.T) {
	t.Parallel()
	v := newTestValidator(nil)

	for _, u := range []string{
		"http://localhost/feed",
		"http://127.0.0.1/feed",
		"http://[::1]/feed",
		"http://169.254.169.254/latest/meta-data/",
		"http://metadata.google.internal/computeMetadata/v1/",
	} {
		if _, err := v.Validate(context.Background(), u, false); !errors.Is(err, ErrBlockedTarget) {
			t.Fatalf("Validate(%q) = %v, want ErrBlockedTarget", u, err)
		}
	}
}

func TestValidateInvalidInput(t *testing.T) {
	t.Parallel()
	v := newTestValidator(nil)

	for _, u := range []string{
		"",
		"   ",
		"ftp://example.com/file",
		"javascript:alert(1)",
		"example.com/no-scheme",
		"http://",
	} {
		if _, err := v.Validate(context.Background(), u, false); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("Validate(%q) = %v, want ErrInvalidURL", u, err)
		}
	}
}

func TestValidatePublicHostname(t *testing.T) {
	t.Parallel()
	v := newTestValidator(map[string][]string{
		"feeds.example.com": {"93.184.216.34", "93.184.216.34", "2606:2800:220:1::1"},
	})

	res, err := v.Validate(context.Background(), "https://feeds.example.com/rss.xml", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.URL != "https://feeds.example.com/rss.xml" {
		t.Fatalf("unexpected URL %q", res.URL)
	}
	want := []string{"93.184.216.34", "2606:2800:220:1::1"}
	if len(res.ValidatedIPs) != len(want) {
		t.Fatalf("validated IPs = %v, want %v", res.ValidatedIPs, want)
	}
	for i := range want {
		if res.ValidatedIPs[i] != want[i] {
			t.Fatalf("validated IPs = %v, want %v (dedup must preserve order)", res.ValidatedIPs, want)
		}
	}
}

func TestValidateRejectsMixedResolution(t *testing.T) {
	t.Parallel()
	// One private answer among public ones rejects the whole resolution.
	v := newTestValidator(map[string][]string{
		"rebind.example.com": {"93.184.216.34", "10.0.0.5"},
	})

	if _, err := v.Validate(context.Background(), "http://rebind.example.com/", false); !errors.Is(err, ErrBlockedTarget) {
		t.Fatalf("got %v, want ErrBlockedTarget", err)
	}
}

func TestValidateUnresolvableHostname(t *testing.T) {
	t.Parallel()
	v := newTestValidator(nil)

	if _, err := v.Validate(context.Background(), "http://nxdomain.example.com/", false); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("got %v, want ErrInvalidURL", err)
	}
}

func TestValidateLiteralIP(t *testing.T) {
	t.Parallel()
	v := newTestValidator(nil)

	res, err := v.Validate(context.Background(), "http://93.184.216.34/feed", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ValidatedIPs != nil {
		t.Fatalf("literal IP must not carry validated IPs, got %v", res.ValidatedIPs)
	}

	if _, err := v.Validate(context.Background(), "http://192.168.1.1/admin", false); !errors.Is(err, ErrBlockedTarget) {
		t.Fatalf("got %v, want ErrBlockedTarget", err)
	}
	if _, err := v.Validate(context.Background(), "http://[fe80::1]/", false); !errors.Is(err, ErrBlockedTarget) {
		t.Fatalf("got %v, want ErrBlockedTarget", err)
	}
}

func TestValidatePercentEncodedBypass(t *testing.T) {
	t.Parallel()
	v := newTestValidator(nil)

	for _, u := range []string{
		"http://127.0.0.1%2e/x",
		"http://%6c%6f%63%61%6c%68%6f%73%74/x",
	} {
		if _, err := v.Validate(context.Background(), u, false); !errors.Is(err, ErrBlockedTarget) {
			t.Fatalf("Validate(%q) = %v, want ErrBlockedTarget", u, err)
		}
	}
}

func TestValidatePreservesPlusInQuery(t *testing.T) {
	t.Parallel()
	v := newTestValidator(map[string][]string{
		"feeds.example.com": {"93.184.216.34"},
	})

	// No percent escape: the URL must come back byte for byte.
	res, err := v.Validate(context.Background(), "https://feeds.example.com/search?q=go+tips", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.URL != "https://feeds.example.com/search?q=go+tips" {
		t.Fatalf("unexpected URL %q", res.URL)
	}

	// Percent escapes trigger the decode pass; a literal '+' alongside
	// them must survive as '+', not turn into a space.
	res, err = v.Validate(context.Background(), "https://feeds.example.com/search?q=c%2B%2B+tips", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(res.URL, " ") {
		t.Fatalf("decode pass rewrote '+' to a space: %q", res.URL)
	}
	if res.URL != "https://feeds.example.com/search?q=c+++tips" {
		t.Fatalf("unexpected URL %q", res.URL)
	}
}

func TestValidateAllowPrivate(t *testing.T) {
	t.Parallel()
	v := newTestValidator(nil)

	res, err := v.Validate(context.Background(), "http://192.168.1.20:8096/", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ValidatedIPs != nil {
		t.Fatalf("allowPrivate must skip resolution, got %v", res.ValidatedIPs)
	}

	// Format checks still apply.
	if _, err := v.Validate(context.Background(), "ftp://192.168.1.20/", true); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("got %v, want ErrInvalidURL", err)
	}
	// The hostname blocklist still applies.
	if _, err := v.Validate(context.Background(), "http://localhost:8096/", true); !errors.Is(err, ErrBlockedTarget) {
		t.Fatalf("got %v, want ErrBlockedTarget", err)
	}
}

func TestValidateDecisionIsStable(t *testing.T) {
	t.Parallel()
	v := newTestValidator(map[string][]string{
		"feeds.example.com": {"93.184.216.34"},
	})

	for i := 0; i < 2; i++ {
		if _, err := v.Validate(context.Background(), "https://feeds.example.com/rss.xml", false); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
}
