package rss

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Source is one feed extracted from an OPML subscription list.
type Source struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	HTMLURL  string `json:"html_url,omitempty"`
	Category string `json:"category,omitempty"`
}

type opmlDoc struct {
	XMLName xml.Name    `xml:"opml"`
	Body    opmlOutline `xml:"body"`
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	HTMLURL  string        `xml:"htmlUrl,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

// ParseOPML extracts feed sources from OPML content. Outlines carrying an
// xmlUrl attribute are feeds; the enclosing outline's text becomes the
// feed's category.
func ParseOPML(content []byte) ([]Source, error) {
	var doc opmlDoc
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid OPML: %w", err)
	}

	var feeds []Source
	walkOutlines(doc.Body.Outlines, "", &feeds)
	return feeds, nil
}

func walkOutlines(outlines []opmlOutline, category string, feeds *[]Source) {
	for _, o := range outlines {
		if u := strings.TrimSpace(o.XMLURL); u != "" {
			title := o.Title
			if title == "" {
				title = o.Text
			}
			if title == "" {
				title = u
			}
			*feeds = append(*feeds, Source{
				URL:      u,
				Title:    title,
				HTMLURL:  o.HTMLURL,
				Category: category,
			})
		}
		if len(o.Outlines) > 0 {
			walkOutlines(o.Outlines, o.Text, feeds)
		}
	}
}
