package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscoverFeeds(t *testing.T) {
	const page = `<!DOCTYPE html>
<html><head>
  <link rel="alternate" type="application/rss+xml" title="RSS" href="/feed.xml">
  <link rel="alternate" type="application/atom+xml" href="https://cdn.example.com/atom.xml">
  <link rel="alternate" type="application/rss+xml" href="/feed.xml">
  <link rel="stylesheet" href="/style.css">
</head><body>hello</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c := newTestConnector(t)
	feeds, err := c.DiscoverFeeds(context.Background(), srv.URL+"/blog")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("expected 2 feeds, got %v", feeds)
	}
	if feeds[0] != srv.URL+"/feed.xml" {
		t.Fatalf("relative href not resolved: %q", feeds[0])
	}
	if feeds[1] != "https://cdn.example.com/atom.xml" {
		t.Fatalf("absolute href mangled: %q", feeds[1])
	}
}

func TestDiscoverFeedsNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head></head><body></body></html>"))
	}))
	defer srv.Close()

	c := newTestConnector(t)
	feeds, err := c.DiscoverFeeds(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feeds) != 0 {
		t.Fatalf("expected no feeds, got %v", feeds)
	}
}
