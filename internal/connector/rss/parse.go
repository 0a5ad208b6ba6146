package rss

import (
	"encoding/xml"
	"errors"
	"strings"
	"time"
)

var errUnsupportedFormat = errors.New("unsupported feed format")

// Minimal RSS 2.0 representation.
type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
	Content string `xml:"encoded"` // content:encoded
}

// Minimal Atom 1.0 representation.
type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomText struct {
	Value string `xml:",chardata"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Updated   string     `xml:"updated"`
	Published string     `xml:"published"`
	Summary   string     `xml:"summary"`
	Content   atomText   `xml:"content"`
}

type atomDoc struct {
	XMLName  xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Title    string      `xml:"title"`
	Subtitle string      `xml:"subtitle"`
	Links    []atomLink  `xml:"link"`
	Entries  []atomEntry `xml:"entry"`
}

// parseFeed tries RSS 2.0 first, then Atom.
func parseFeed(data []byte) (*Feed, []Entry, error) {
	if feed, entries, ok := parseRSS(data); ok {
		return feed, entries, nil
	}
	if feed, entries, ok := parseAtom(data); ok {
		return feed, entries, nil
	}
	return nil, nil, errUnsupportedFormat
}

func parseRSS(data []byte) (*Feed, []Entry, bool) {
	var doc rssDoc
	if err := xml.Unmarshal(data, &doc); err != nil || doc.XMLName.Local != "rss" {
		return nil, nil, false
	}
	feed := &Feed{
		Title:       strings.TrimSpace(doc.Channel.Title),
		Link:        strings.TrimSpace(doc.Channel.Link),
		Description: strings.TrimSpace(doc.Channel.Description),
	}
	entries := make([]Entry, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		content := it.Content
		if content == "" {
			content = it.Desc
		}
		entries = append(entries, newEntry(
			strings.TrimSpace(it.GUID),
			strings.TrimSpace(it.Title),
			strings.TrimSpace(it.Link),
			strings.TrimSpace(it.Desc),
			strings.TrimSpace(content),
			parseFeedTime(it.PubDate),
		))
	}
	return feed, entries, true
}

func parseAtom(data []byte) (*Feed, []Entry, bool) {
	var doc atomDoc
	if err := xml.Unmarshal(data, &doc); err != nil || doc.XMLName.Local != "feed" {
		return nil, nil, false
	}
	feed := &Feed{
		Title:       strings.TrimSpace(doc.Title),
		Link:        pickAtomLink(doc.Links),
		Description: strings.TrimSpace(doc.Subtitle),
	}
	entries := make([]Entry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		published := e.Published
		if published == "" {
			published = e.Updated
		}
		entries = append(entries, newEntry(
			strings.TrimSpace(e.ID),
			strings.TrimSpace(e.Title),
			pickAtomLink(e.Links),
			strings.TrimSpace(e.Summary),
			strings.TrimSpace(e.Content.Value),
			parseFeedTime(published),
		))
	}
	return feed, entries, true
}

// pickAtomLink prefers rel="alternate" (or no rel), falling back to the
// first link present.
func pickAtomLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

var feedTimeFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05Z0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// parseFeedTime parses the date formats seen in the wild, falling back to
// the current time so entries without usable dates still sort.
func parseFeedTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range feedTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
