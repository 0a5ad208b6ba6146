// Package fetch performs outbound GET requests that follow redirects only
// after every hop has been re-validated against the SSRF policy, with the
// connection pinned to the addresses returned by validation.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hopguard/hopguard/internal/httpclient"
	"github.com/hopguard/hopguard/internal/metrics"
	"github.com/hopguard/hopguard/internal/ssrf"
)

// DefaultMaxRedirects bounds the number of requests issued per fetch.
const DefaultMaxRedirects = 5

var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

// Config holds fetcher settings.
type Config struct {
	Client       httpclient.Config
	MaxRedirects int
	// AllowPrivate disables address blocking for operator-configured
	// internal targets. Never set it for user-supplied URLs.
	AllowPrivate bool
	// Timeout is the whole-chain budget applied when the caller's context
	// carries no deadline of its own.
	Timeout time.Duration
}

// Response is the terminal response of a fetch together with the hop chain
// that led to it. The caller owns Body.
type Response struct {
	*http.Response
	Chain []Hop
}

// FinalURL returns the logical URL of the terminal hop, in hostname form
// rather than the pinned IP form the request was actually sent to.
func (r *Response) FinalURL() string {
	if len(r.Chain) == 0 {
		return ""
	}
	return r.Chain[len(r.Chain)-1].Source
}

// Fetcher issues GETs hop by hop. Each hop passes through validation
// before a request is built; there is no path that reaches the network
// with an unvalidated URL.
type Fetcher struct {
	validator *ssrf.Validator
	cfg       Config
	base      *http.Client
	log       *zap.Logger

	mu     sync.Mutex
	pinned map[string]*http.Client
}

// New creates a Fetcher. A nil validator gets the default policy and
// system resolver; a nil logger is replaced with a no-op logger.
func New(validator *ssrf.Validator, cfg Config, log *zap.Logger) *Fetcher {
	if validator == nil {
		validator = ssrf.NewValidator(nil, log)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	return &Fetcher{
		validator: validator,
		cfg:       cfg,
		base:      httpclient.New(cfg.Client),
		log:       log,
		pinned:    make(map[string]*http.Client),
	}
}

// Fetch GETs rawURL, following up to MaxRedirects validated hops. Extra
// headers are applied to every hop; the Host header is recomputed per hop
// from that hop's own hostname and must not be supplied by the caller.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) (*Response, error) {
	if _, ok := ctx.Deadline(); !ok && f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := f.fetch(ctx, rawURL, headers)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	return resp, err
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, headers http.Header) (*Response, error) {
	chain := make([]Hop, 0, f.cfg.MaxRedirects)
	current := rawURL

	for hop := 0; hop < f.cfg.MaxRedirects; hop++ {
		if ctx.Err() != nil {
			metrics.Fetches.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}

		res, err := f.validator.Validate(ctx, current, f.cfg.AllowPrivate)
		if err != nil {
			if errors.Is(err, ssrf.ErrBlockedTarget) {
				stage := "initial"
				if hop > 0 {
					stage = "redirect"
				}
				metrics.BlockedTargets.WithLabelValues(stage).Inc()
				metrics.Fetches.WithLabelValues("blocked").Inc()
				f.log.Warn("fetch aborted on blocked target", zap.Int("hop", hop))
			} else {
				metrics.Fetches.WithLabelValues("invalid").Inc()
			}
			return nil, err
		}

		target, hostname := pinTarget(res)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			metrics.Fetches.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if hostname != "" {
			// Original hostname travels in the Host header so virtual
			// hosting and TLS keep working against the pinned address.
			req.Host = hostname
		}

		reqStart := time.Now()
		resp, err := f.clientFor(req.URL.Scheme, hostname).Do(req)
		elapsed := time.Since(reqStart).Milliseconds()
		if err != nil {
			if ctx.Err() != nil {
				metrics.Fetches.WithLabelValues("timeout").Inc()
				return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			}
			metrics.Fetches.WithLabelValues("transport").Inc()
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		h := Hop{Index: hop, Source: current, Status: resp.StatusCode, TimeMs: elapsed}

		if !redirectStatuses[resp.StatusCode] {
			h.Final = true
			chain = append(chain, h)
			metrics.Fetches.WithLabelValues("ok").Inc()
			return &Response{Response: resp, Chain: chain}, nil
		}

		loc := resp.Header.Get("Location")
		_ = resp.Body.Close()
		if loc == "" {
			metrics.Fetches.WithLabelValues("missing_location").Inc()
			return nil, ErrMissingLocation
		}
		next, err := url.Parse(loc)
		if err != nil {
			metrics.Fetches.WithLabelValues("missing_location").Inc()
			return nil, fmt.Errorf("%w: unparsable Location", ErrMissingLocation)
		}

		// Relative Locations resolve against the hop's logical URL, which
		// keeps the hostname form so the next hop re-validates and pins
		// on its own.
		base, err := url.Parse(current)
		if err != nil {
			metrics.Fetches.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("%w: %v", ErrTransport, err)
		}
		nextURL := base.ResolveReference(next).String()

		h.Target = nextURL
		chain = append(chain, h)
		metrics.RedirectsFollowed.Inc()
		f.log.Debug("following validated redirect",
			zap.Int("hop", hop), zap.Int("status", h.Status))

		current = nextURL
	}

	metrics.Fetches.WithLabelValues("redirect_limit").Inc()
	return nil, fmt.Errorf("%w (max %d)", ErrTooManyRedirects, f.cfg.MaxRedirects)
}

// clientFor returns the client for one hop. Pinned https hops need their
// own transport so SNI and certificate verification use the original
// hostname instead of the IP in the URL. Those clients are cached per
// hostname; a throwaway transport would strand its keep-alive connection
// in an idle pool nothing ever drains.
func (f *Fetcher) clientFor(scheme, hostname string) *http.Client {
	if hostname == "" || scheme != "https" {
		return f.base
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.pinned[hostname]; ok {
		return c
	}
	cfg := f.cfg.Client
	cfg.ServerName = hostname
	c := httpclient.New(cfg)
	f.pinned[hostname] = c
	return c
}

// pinTarget rewrites the URL authority to the first validated address and
// returns the hostname that must travel in the Host header. When the
// hostname was already a literal IP there is nothing to pin.
func pinTarget(res ssrf.Result) (target, hostname string) {
	if len(res.ValidatedIPs) == 0 {
		return res.URL, ""
	}
	u, err := url.Parse(res.URL)
	if err != nil {
		return res.URL, ""
	}
	hostname = u.Hostname()
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(res.ValidatedIPs[0], port)
	} else {
		u.Host = ssrf.FormatIPForURL(res.ValidatedIPs[0])
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), hostname
}
