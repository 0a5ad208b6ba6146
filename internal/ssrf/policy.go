// Package ssrf decides whether an outbound target is safe to connect to
// from the server's network position, and resolves hostnames into pinned
// IP addresses so the decision cannot be flipped by DNS rebinding.
package ssrf

import (
	"fmt"
	"net"
	"strings"
)

// defaultBlockedCIDRs are the ranges an outbound request must never reach:
// current-network, loopback, link-local, RFC 1918 private, multicast,
// reserved, and their IPv6 equivalents.
var defaultBlockedCIDRs = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
}

// defaultBlockedHostnames are exact-match hostnames rejected before any
// resolution happens. 169.254.169.254 and metadata.google.internal cover
// the cloud metadata endpoints.
var defaultBlockedHostnames = []string{
	"localhost",
	"0.0.0.0",
	"127.0.0.1",
	"[::]",
	"[::1]",
	"metadata.google.internal",
	"169.254.169.254",
}

// Policy holds the blocked IP ranges and hostname set used to classify
// outbound targets. It is immutable after construction and safe for
// unsynchronized concurrent reads.
type Policy struct {
	blockedRanges    []*net.IPNet
	blockedHostnames map[string]struct{}
}

// NewPolicy builds a Policy from CIDR strings and hostname literals.
func NewPolicy(cidrs, hostnames []string) (*Policy, error) {
	p := &Policy{blockedHostnames: make(map[string]struct{}, len(hostnames))}
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("invalid blocked range %q: %w", c, err)
		}
		p.blockedRanges = append(p.blockedRanges, n)
	}
	for _, h := range hostnames {
		p.blockedHostnames[strings.ToLower(h)] = struct{}{}
	}
	return p, nil
}

// DefaultPolicy returns the policy blocking private, loopback, link-local,
// multicast, reserved ranges and well-known metadata hostnames.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(defaultBlockedCIDRs, defaultBlockedHostnames)
	if err != nil {
		panic(err) // default tables are compile-time constants
	}
	return p
}

// IsIPBlocked reports whether s parses as an IP address inside a blocked
// range. Strings that are not IP addresses return false; they are handled
// by the hostname checks instead.
func (p *Policy) IsIPBlocked(s string) bool {
	s = unwrapBrackets(s)
	if i := strings.IndexByte(s, '%'); i >= 0 {
		// Zone-scoped addresses (fe80::1%eth0) are never safe targets.
		if net.ParseIP(s[:i]) != nil {
			return true
		}
		return false
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return p.ipBlocked(ip)
}

func (p *Policy) ipBlocked(ip net.IP) bool {
	for _, n := range p.blockedRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// IsHostnameBlocked reports whether hostname matches the blocklist.
// Matching is case-insensitive; any hostname containing "localhost" or
// starting with "127." is rejected regardless of the exact-match set.
func (p *Policy) IsHostnameBlocked(hostname string) bool {
	h := strings.ToLower(strings.TrimSpace(hostname))
	if _, ok := p.blockedHostnames[h]; ok {
		return true
	}
	return strings.Contains(h, "localhost") || strings.HasPrefix(h, "127.")
}

// FormatIPForURL renders an IP address for use in a URL authority,
// bracketing IPv6 addresses.
func FormatIPForURL(ip string) string {
	if strings.Contains(ip, ":") && !strings.HasPrefix(ip, "[") {
		return "[" + ip + "]"
	}
	return ip
}

func unwrapBrackets(s string) string {
	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}
