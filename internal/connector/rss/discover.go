package rss

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiscoverFeeds fetches an HTML page and returns the feed URLs it
// advertises via <link rel="alternate"> elements, resolved to absolute
// form. Pages without advertised feeds return an empty slice.
func (c *Connector) DiscoverFeeds(ctx context.Context, pageURL string) ([]string, error) {
	body, finalURL, err := c.get(ctx, pageURL, "text/html, application/xhtml+xml")
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(finalURL)
	if err != nil {
		base, _ = url.Parse(pageURL)
	}

	var feeds []string
	seen := make(map[string]struct{})
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !isFeedType(typ) {
			return
		}
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		feeds = append(feeds, abs)
	})
	return feeds, nil
}

func isFeedType(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "application/rss+xml", "application/atom+xml", "application/feed+json":
		return true
	}
	return false
}
