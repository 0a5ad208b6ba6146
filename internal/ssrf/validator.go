package ssrf

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// maxDecodePasses bounds percent-decode re-validation so nested encodings
// cannot force unbounded recursion.
const maxDecodePasses = 3

// LookupFunc resolves a hostname to its A and AAAA answers.
type LookupFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

// Result is the outcome of a successful validation. ValidatedIPs is nil
// when the hostname was already a literal IP address: no DNS was involved,
// so there is no rebinding window to close.
type Result struct {
	URL          string
	ValidatedIPs []string
}

// Validator turns caller-supplied URLs into validated, IP-pinned targets.
// The addresses it returns must be used directly for the request;
// re-resolving the hostname later reopens the TOCTOU window.
type Validator struct {
	Policy *Policy
	Lookup LookupFunc

	log *zap.Logger
}

// NewValidator creates a Validator using the system resolver. A nil policy
// falls back to DefaultPolicy, a nil logger to a no-op logger.
func NewValidator(policy *Policy, log *zap.Logger) *Validator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{
		Policy: policy,
		Lookup: net.DefaultResolver.LookupIPAddr,
		log:    log,
	}
}

// Validate checks that rawURL is safe for an outbound request. When the
// hostname is a domain name it is resolved and every answer is checked;
// one blocked answer rejects the whole resolution. URLs containing percent
// escapes are decoded and re-validated so encoding cannot hide a blocked
// target.
//
// allowPrivate skips the address blocking (but not the scheme and hostname
// format checks) and exists for operator-configured internal connectors.
// It must never be set for user-supplied input.
func (v *Validator) Validate(ctx context.Context, rawURL string, allowPrivate bool) (Result, error) {
	current := strings.TrimSpace(rawURL)
	var res Result
	for pass := 0; ; pass++ {
		var err error
		res, err = v.validateOnce(ctx, current, allowPrivate)
		if err != nil {
			return Result{}, err
		}
		if pass >= maxDecodePasses || !strings.Contains(current, "%") {
			return res, nil
		}
		// PathUnescape decodes percent escapes only; QueryUnescape would
		// also rewrite literal '+' to a space and mangle query strings.
		decoded, derr := url.PathUnescape(current)
		if derr != nil || decoded == current {
			return res, nil
		}
		current = decoded
	}
}

func (v *Validator) validateOnce(ctx context.Context, rawURL string, allowPrivate bool) (Result, error) {
	if rawURL == "" {
		return Result{}, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return Result{}, fmt.Errorf("%w: URL must start with http:// or https://", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Result{}, fmt.Errorf("%w: only http and https schemes are allowed", ErrInvalidURL)
	}
	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return Result{}, fmt.Errorf("%w: URL must contain a hostname", ErrInvalidURL)
	}

	if v.Policy.IsHostnameBlocked(hostname) {
		v.log.Warn("blocked outbound target", zap.String("hostname", hostname), zap.String("reason", "hostname"))
		return Result{}, ErrBlockedTarget
	}

	if allowPrivate {
		return Result{URL: rawURL}, nil
	}

	if v.Policy.IsIPBlocked(hostname) {
		v.log.Warn("blocked outbound target", zap.String("hostname", hostname), zap.String("reason", "literal-ip"))
		return Result{}, ErrBlockedTarget
	}
	if ip := net.ParseIP(unwrapBrackets(hostname)); ip != nil {
		// Literal address, already vetted above; nothing to resolve.
		return Result{URL: rawURL}, nil
	}

	ips, err := v.resolveAndCheck(ctx, hostname)
	if err != nil {
		return Result{}, err
	}
	return Result{URL: rawURL, ValidatedIPs: ips}, nil
}

// resolveAndCheck resolves hostname and rejects the whole resolution when
// any answer is blocked. A multi-answer response with one private address
// among public ones is treated as an attack signal, not a partial success.
// The returned list is de-duplicated preserving answer order.
func (v *Validator) resolveAndCheck(ctx context.Context, hostname string) ([]string, error) {
	addrs, err := v.Lookup(ctx, hostname)
	if err != nil {
		// Unresolvable hostnames are a validation problem, not an SSRF signal.
		return nil, fmt.Errorf("%w: unable to resolve hostname", ErrInvalidURL)
	}

	seen := make(map[string]struct{}, len(addrs))
	ips := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Zone != "" || v.Policy.ipBlocked(a.IP) {
			v.log.Warn("hostname resolves to blocked address",
				zap.String("hostname", hostname), zap.String("reason", "resolved-ip"))
			return nil, ErrBlockedTarget
		}
		s := a.IP.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		ips = append(ips, s)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: unable to resolve hostname", ErrInvalidURL)
	}
	return ips, nil
}
