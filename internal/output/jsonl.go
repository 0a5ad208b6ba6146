package output

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/hopguard/hopguard/internal/fetch"
)

// Record is one JSONL output line: a fetched URL, the redirect chain it
// took, and the feed stats when the URL was a feed.
type Record struct {
	URL        string      `json:"url"`
	FinalURL   string      `json:"final_url,omitempty"`
	Status     int         `json:"status,omitempty"`
	Chain      []fetch.Hop `json:"chain,omitempty"`
	FeedTitle  string      `json:"feed_title,omitempty"`
	EntryCount int         `json:"entry_count,omitempty"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// JSONLWriter writes one Record per line as JSON.
type JSONLWriter struct {
	w  *bufio.Writer
	mu sync.Mutex
}

// NewJSONLWriter wraps an io.Writer with buffering.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{w: bufio.NewWriter(w)}
}

// Write writes a single record as a JSON line.
func (j *JSONLWriter) Write(r Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	enc := json.NewEncoder(j.w)
	// For stable lines without extra spaces.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return nil
}

// Flush flushes the underlying buffer.
func (j *JSONLWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.w.Flush()
}

// Close flushes the buffer; keep the signature similar to io.Closer.
func (j *JSONLWriter) Close() error {
	return j.Flush()
}
