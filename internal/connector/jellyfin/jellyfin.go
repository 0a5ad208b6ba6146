// Package jellyfin talks to a Jellyfin media server. The server URL is
// validated and resolved once at construction; every request afterwards
// is pinned to the validated addresses with the original hostname carried
// in the Host header.
package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hopguard/hopguard/internal/httpclient"
	"github.com/hopguard/hopguard/internal/ssrf"
)

// Jellyfin reports durations in ticks of 100ns.
const tickDuration = 100 * time.Nanosecond

// Config holds connector settings.
type Config struct {
	ServerURL string
	APIKey    string
	UserID    string
	// AllowPrivate permits servers on private addresses. Operator
	// configuration only; never derived from user input.
	AllowPrivate bool
	Timeout      time.Duration
}

// ServerInfo is the subset of /System/Info the connector exposes.
type ServerInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
	ID         string `json:"Id"`
}

// Library is one media folder on the server.
type Library struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	CollectionType string `json:"CollectionType"`
}

// User is one account on the server.
type User struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Item is a normalized media item.
type Item struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Overview string        `json:"overview,omitempty"`
	Runtime  time.Duration `json:"runtime"`
	Year     int           `json:"year,omitempty"`
}

// Client is a Jellyfin API client bound to one server.
type Client struct {
	cfg          Config
	serverURL    *url.URL
	validatedIPs []string
	http         *http.Client
	log          *zap.Logger
}

// New validates and resolves the server URL, then returns a client whose
// requests are pinned to the validated addresses. Validation failures are
// returned as-is so callers can distinguish blocked targets from bad input.
func New(ctx context.Context, cfg Config, validator *ssrf.Validator, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if validator == nil {
		validator = ssrf.NewValidator(nil, log)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("jellyfin: API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	trimmed := strings.TrimRight(cfg.ServerURL, "/")
	res, err := validator.Validate(ctx, trimmed, cfg.AllowPrivate)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(res.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ssrf.ErrInvalidURL, err)
	}

	return &Client{
		cfg:          cfg,
		serverURL:    u,
		validatedIPs: res.ValidatedIPs,
		http: httpclient.New(httpclient.Config{
			Timeout:    cfg.Timeout,
			ServerName: u.Hostname(),
		}),
		log: log,
	}, nil
}

// buildRequest returns a GET request for endpoint, pinned to the first
// validated address when the server URL carried a hostname.
func (c *Client) buildRequest(ctx context.Context, endpoint string, query url.Values) (*http.Request, error) {
	u := *c.serverURL
	hostname := u.Hostname()
	if len(c.validatedIPs) > 0 {
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort(c.validatedIPs[0], port)
		} else {
			u.Host = ssrf.FormatIPForURL(c.validatedIPs[0])
		}
	}
	u.Path = strings.TrimRight(u.Path, "/") + endpoint
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if len(c.validatedIPs) > 0 {
		req.Host = hostname
	}
	req.Header.Set("X-Emby-Token", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.buildRequest(ctx, endpoint, query)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jellyfin: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("jellyfin: invalid API key")
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("jellyfin: server returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// TestConnection checks that the server is reachable and the API key is
// accepted.
func (c *Client) TestConnection(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.getJSON(ctx, "/System/Info", nil, &info); err != nil {
		return nil, err
	}
	c.log.Info("connected to media server",
		zap.String("server", info.ServerName),
		zap.String("version", info.Version))
	return &info, nil
}

// Libraries lists the server's media folders.
func (c *Client) Libraries(ctx context.Context) ([]Library, error) {
	var payload struct {
		Items []Library `json:"Items"`
	}
	if err := c.getJSON(ctx, "/Library/MediaFolders", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// Users lists the accounts known to the server.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, "/Users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Items lists items in a library, normalized for downstream indexing.
func (c *Client) Items(ctx context.Context, libraryID string) ([]Item, error) {
	return c.listItems(ctx, url.Values{
		"ParentId":  {libraryID},
		"Recursive": {"true"},
		"Fields":    {"Overview,ProductionYear"},
	})
}

// Favorites lists the configured user's favorite items.
func (c *Client) Favorites(ctx context.Context) ([]Item, error) {
	if c.cfg.UserID == "" {
		return nil, fmt.Errorf("jellyfin: user_id is required for favorites")
	}
	return c.listItems(ctx, url.Values{
		"Filters":   {"IsFavorite"},
		"Recursive": {"true"},
		"Fields":    {"Overview,ProductionYear"},
	})
}

// RecentlyPlayed lists the configured user's play history, most recent
// first.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]Item, error) {
	if c.cfg.UserID == "" {
		return nil, fmt.Errorf("jellyfin: user_id is required for play history")
	}
	if limit <= 0 {
		limit = 25
	}
	return c.listItems(ctx, url.Values{
		"Filters":   {"IsPlayed"},
		"SortBy":    {"DatePlayed"},
		"SortOrder": {"Descending"},
		"Recursive": {"true"},
		"Limit":     {strconv.Itoa(limit)},
		"Fields":    {"Overview,ProductionYear"},
	})
}

func (c *Client) listItems(ctx context.Context, q url.Values) ([]Item, error) {
	endpoint := "/Items"
	if c.cfg.UserID != "" {
		endpoint = "/Users/" + url.PathEscape(c.cfg.UserID) + "/Items"
	}

	var payload struct {
		Items []struct {
			ID             string `json:"Id"`
			Name           string `json:"Name"`
			Type           string `json:"Type"`
			Overview       string `json:"Overview"`
			RunTimeTicks   int64  `json:"RunTimeTicks"`
			ProductionYear int    `json:"ProductionYear"`
		} `json:"Items"`
	}
	if err := c.getJSON(ctx, endpoint, q, &payload); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(payload.Items))
	for _, it := range payload.Items {
		items = append(items, Item{
			ID:       it.ID,
			Name:     it.Name,
			Type:     it.Type,
			Overview: it.Overview,
			Runtime:  TicksToDuration(it.RunTimeTicks),
			Year:     it.ProductionYear,
		})
	}
	return items, nil
}

// TicksToDuration converts Jellyfin runtime ticks (100ns units) to a
// duration.
func TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * tickDuration
}
