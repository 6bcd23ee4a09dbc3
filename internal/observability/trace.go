// Package observability provides an opt-in trace writer for the client's
// requests and streams.
package observability

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"
)

// sensitiveParams are query parameter names scrubbed from trace output.
// The list is intentionally specific to avoid hiding useful debug info.
var sensitiveParams = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"password":      true,
	"secret":        true,
	"client_secret": true,
	"code":          true, // OAuth authorization codes
	"state":         true,
}

// TraceWriter outputs human-readable trace lines with timestamps relative to
// session start. A nil *TraceWriter is valid and silently discards; the
// client calls it unconditionally.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
}

// NewTraceWriterTo creates a TraceWriter writing to w.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{writer: w, startTime: time.Now()}
}

// RequestStart records an outgoing request.
// Format: [0.234s] GET https://host/path
func (t *TraceWriter) RequestStart(method, rawURL string) {
	t.printf("%s %s", method, ScrubURL(rawURL))
}

// RequestDone records a completed round trip.
func (t *TraceWriter) RequestDone(method, rawURL string, status int, elapsed time.Duration) {
	t.printf("%s %s -> %d (%.3fs)", method, ScrubURL(rawURL), status, elapsed.Seconds())
}

// RequestError records a transport failure.
func (t *TraceWriter) RequestError(method, rawURL string, err error) {
	t.printf("%s %s failed: %v", method, ScrubURL(rawURL), err)
}

// TokenRefreshed records a successful token refresh.
func (t *TraceWriter) TokenRefreshed(expiresAt time.Time) {
	t.printf("token refreshed, expires %s", expiresAt.Format(time.RFC3339))
}

// StreamOpen records a stream being opened.
func (t *TraceWriter) StreamOpen(rawURL string) {
	t.printf("stream open %s", ScrubURL(rawURL))
}

// StreamEvent records one classified stream event.
func (t *TraceWriter) StreamEvent(rawURL, kind string) {
	t.printf("stream %s <- %s", ScrubURL(rawURL), kind)
}

// StreamClose records a stream terminating.
func (t *TraceWriter) StreamClose(rawURL string) {
	t.printf("stream close %s", ScrubURL(rawURL))
}

func (t *TraceWriter) printf(format string, args ...any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := time.Since(t.startTime).Seconds()
	fmt.Fprintf(t.writer, "[%.3fs] %s\n", elapsed, fmt.Sprintf(format, args...))
}

// ScrubURL replaces sensitive query parameter values with "***".
func ScrubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	scrubbed := false
	for name := range q {
		if sensitiveParams[strings.ToLower(name)] {
			q.Set(name, "***")
			scrubbed = true
		}
	}
	if scrubbed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
