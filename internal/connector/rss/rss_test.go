package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hopguard/hopguard/internal/fetch"
	"github.com/hopguard/hopguard/internal/httpclient"
	"github.com/hopguard/hopguard/internal/ssrf"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example News</title>
    <link>https://news.example.com</link>
    <description>All the examples</description>
    <item>
      <title>First</title>
      <link>https://news.example.com/1</link>
      <guid>tag:news.example.com,1</guid>
      <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
      <description>first item</description>
    </item>
    <item>
      <title>Second</title>
      <link>https://news.example.com/2</link>
      <guid>tag:news.example.com,2</guid>
      <pubDate>Tue, 03 Jan 2006 10:00:00 -0700</pubDate>
      <description>second item</description>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <link rel="alternate" href="https://blog.example.com"/>
  <entry>
    <id>urn:uuid:1</id>
    <title>Hello</title>
    <link rel="alternate" href="https://blog.example.com/hello"/>
    <published>2006-01-02T15:04:05Z</published>
    <summary>hi</summary>
  </entry>
</feed>`

// newTestConnector builds a connector whose fetcher allows loopback so
// httptest servers are reachable.
func newTestConnector(t *testing.T) *Connector {
	t.Helper()
	policy, err := ssrf.NewPolicy([]string{"192.168.0.0/16"}, nil)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	f := fetch.New(ssrf.NewValidator(policy, zap.NewNop()), fetch.Config{
		Client: httpclient.Config{Timeout: 5 * time.Second},
	}, zap.NewNop())
	return New(f, zap.NewNop())
}

func TestFetchFeedRSS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	c := newTestConnector(t)
	feed, entries, err := c.FetchFeed(context.Background(), srv.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed.Title != "Example News" {
		t.Fatalf("feed title = %q", feed.Title)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].GUID != "tag:news.example.com,1" || entries[0].Title != "First" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].Published.IsZero() || entries[0].Hash == "" || entries[0].ID == "" {
		t.Fatalf("entry not normalized: %+v", entries[0])
	}
}

func TestFetchFeedAtom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleAtom))
	}))
	defer srv.Close()

	c := newTestConnector(t)
	feed, entries, err := c.FetchFeed(context.Background(), srv.URL+"/atom.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed.Title != "Atom Example" || feed.Link != "https://blog.example.com" {
		t.Fatalf("unexpected feed: %+v", feed)
	}
	if len(entries) != 1 || entries[0].Link != "https://blog.example.com/hello" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestFetchFeedDeduplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	c := newTestConnector(t)
	_, first, err := c.FetchFeed(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first fetch: %d entries", len(first))
	}
	_, second, err := c.FetchFeed(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second fetch should drop seen entries, got %d", len(second))
	}
}

func TestFetchFeedUnsupportedFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>not a feed</body></html>"))
	}))
	defer srv.Close()

	c := newTestConnector(t)
	if _, _, err := c.FetchFeed(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for non-feed content")
	}
}

func TestFetchFeedBlockedURL(t *testing.T) {
	c := newTestConnector(t)
	_, _, err := c.FetchFeed(context.Background(), "http://192.168.1.10/feed.xml")
	if err == nil {
		t.Fatal("expected blocked target error")
	}
}

func TestValidateFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	c := newTestConnector(t)
	h := c.Validate(context.Background(), srv.URL)
	if !h.Valid {
		t.Fatalf("expected valid feed, got %+v", h)
	}
	if h.ItemCount != 2 || h.Title != "Example News" {
		t.Fatalf("unexpected health: %+v", h)
	}
	if h.LastUpdated == nil || h.LastUpdated.Year() != 2006 {
		t.Fatalf("last updated not derived: %+v", h.LastUpdated)
	}
}

func TestValidateEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<rss version="2.0"><channel><title>Empty</title></channel></rss>`))
	}))
	defer srv.Close()

	c := newTestConnector(t)
	h := c.Validate(context.Background(), srv.URL)
	if h.Valid {
		t.Fatal("feed with no items must not be valid")
	}
	if h.Error == "" {
		t.Fatal("expected error message")
	}
}

func TestParseFeedTimeFallback(t *testing.T) {
	before := time.Now().Add(-time.Minute)
	got := parseFeedTime("not a date")
	if got.Before(before) {
		t.Fatalf("fallback time too old: %v", got)
	}
}
