// Package rss fetches and parses RSS and Atom feeds through the
// redirect-safe fetcher. It owns feed parsing, OPML import, feed health
// checks and entry de-duplication; everything network-facing is delegated
// to the fetch package so each feed URL and redirect is validated.
package rss

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hopguard/hopguard/internal/fetch"
)

const (
	// maxFeedBytes bounds how much of a feed body is read (8 MiB).
	maxFeedBytes = 8 << 20
	// seenCacheSize bounds the de-duplication cache.
	seenCacheSize = 10000
)

// Feed is the normalized description of a fetched feed.
type Feed struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// Entry is a normalized feed item.
type Entry struct {
	ID        string    `json:"id"`
	GUID      string    `json:"guid,omitempty"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	Summary   string    `json:"summary,omitempty"`
	Content   string    `json:"content,omitempty"`
	Hash      string    `json:"hash"`
}

// Health is the result of a feed health check.
type Health struct {
	URL         string     `json:"url"`
	Valid       bool       `json:"valid"`
	Title       string     `json:"title,omitempty"`
	ItemCount   int        `json:"item_count"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Connector fetches RSS/Atom feeds. Entries already seen (by GUID, or by
// content hash when the feed carries no GUIDs) are dropped on subsequent
// fetches.
type Connector struct {
	fetcher *fetch.Fetcher
	seen    gcache.Cache
	log     *zap.Logger
}

// New creates a feed connector on top of a redirect-safe fetcher.
func New(fetcher *fetch.Fetcher, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{
		fetcher: fetcher,
		seen:    gcache.New(seenCacheSize).LRU().Build(),
		log:     log,
	}
}

// FetchFeed fetches and parses a single feed, returning the feed metadata
// and the entries not seen before.
func (c *Connector) FetchFeed(ctx context.Context, url string) (*Feed, []Entry, error) {
	body, finalURL, err := c.get(ctx, url, "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if err != nil {
		return nil, nil, err
	}

	feed, entries, err := parseFeed(body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse feed %s: %w", finalURL, err)
	}
	feed.URL = url
	if feed.Link == "" {
		feed.Link = url
	}

	fresh := c.dedupe(entries)
	c.log.Debug("feed fetched",
		zap.String("url", url),
		zap.Int("entries", len(entries)),
		zap.Int("new", len(fresh)))
	return feed, fresh, nil
}

// Validate checks feed health without touching the de-duplication state.
func (c *Connector) Validate(ctx context.Context, url string) Health {
	h := Health{URL: url}

	body, _, err := c.get(ctx, url, "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if err != nil {
		h.Error = err.Error()
		return h
	}

	feed, entries, err := parseFeed(body)
	if err != nil {
		h.Error = err.Error()
		return h
	}
	h.Title = feed.Title
	h.ItemCount = len(entries)
	if len(entries) == 0 {
		h.Error = "feed has no items"
		return h
	}
	for _, e := range entries {
		if h.LastUpdated == nil || e.Published.After(*h.LastUpdated) {
			t := e.Published
			h.LastUpdated = &t
		}
	}
	h.Valid = true
	return h
}

func (c *Connector) get(ctx context.Context, url, accept string) ([]byte, string, error) {
	headers := http.Header{"Accept": []string{accept}}
	resp, err := c.fetcher.Fetch(ctx, url, headers)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", url, err)
	}
	return body, resp.FinalURL(), nil
}

// dedupe filters out entries whose GUID or content hash has been seen.
func (c *Connector) dedupe(entries []Entry) []Entry {
	fresh := entries[:0:0]
	for _, e := range entries {
		key := e.GUID
		if key == "" {
			key = e.Hash
		}
		if _, err := c.seen.GetIFPresent(key); err == nil {
			continue
		}
		_ = c.seen.Set(key, struct{}{})
		fresh = append(fresh, e)
	}
	return fresh
}

func newEntry(guid, title, link, summary, content string, published time.Time) Entry {
	sum := sha256.Sum256([]byte(title + "\x00" + link + "\x00" + content))
	return Entry{
		ID:        uuid.NewString(),
		GUID:      guid,
		Title:     title,
		Link:      link,
		Published: published,
		Summary:   summary,
		Content:   content,
		Hash:      hex.EncodeToString(sum[:]),
	}
}
