package tradestation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"sync"
	"time"

	"github.com/quantpulse/tradestation-go/internal/ndjson"
	"github.com/quantpulse/tradestation-go/internal/observability"
)

// Heartbeat is the liveness event sent after ~5 s of stream inactivity.
type Heartbeat struct {
	Heartbeat int64  `json:"Heartbeat"`
	Timestamp string `json:"Timestamp"`
}

// StreamStatus is a stream lifecycle notification. The state is one of
// "Opened", "Paused", "Resumed", or "Closed"; status events do not change
// the stream's own state machine.
type StreamStatus struct {
	StreamStatus string `json:"StreamStatus"`
}

// StreamError is a remote error event. It does not by itself terminate the
// stream.
type StreamError struct {
	Error     string `json:"Error"`
	Message   string `json:"Message"`
	AccountID string `json:"AccountID,omitempty"`
}

// Event is one classified line from a stream. Exactly one field is set.
type Event struct {
	// Payload holds the raw domain object when the line matched the
	// stream's payload predicate.
	Payload json.RawMessage
	// Heartbeat, Status, and Err are the control variants.
	Heartbeat *Heartbeat
	Status    *StreamStatus
	Err       *StreamError
	// DecodeErr is set when the line was not valid JSON. The stream stays
	// open; only transport faults and caller action terminate it.
	DecodeErr *Error
}

// PayloadPredicate decides whether a parsed stream line is a domain payload.
// It receives the line's root object keys and runs before the control-event
// checks, so payload shapes that happen to carry control-like keys win.
type PayloadPredicate func(root map[string]json.RawMessage) bool

// KeyPresent returns a predicate matching lines that contain every given key.
func KeyPresent(keys ...string) PayloadPredicate {
	return func(root map[string]json.RawMessage) bool {
		for _, k := range keys {
			if _, ok := root[k]; !ok {
				return false
			}
		}
		return true
	}
}

// Stream is a long-lived NDJSON event stream. It is a pull surface: call
// Next until io.EOF, or range over Events. Each adapts it into the push
// surface. Closing the stream cancels the underlying request.
type Stream struct {
	body      io.ReadCloser
	lines     *ndjson.Scanner
	isPayload PayloadPredicate
	url       string
	trace     *observability.TraceWriter

	closeOnce sync.Once
}

// OpenStream issues the long-lived GET for path and returns the stream. The
// token is checked (and refreshed single-flight) before the connection is
// opened; if it expires mid-stream the connection keeps the already
// presented header until the server closes it.
//
// A non-2xx response is drained and decoded through the error envelope, so
// stream endpoints surface the same typed errors as one-shot requests.
func (c *Client) OpenStream(ctx context.Context, path string, isPayload PayloadPredicate) (*Stream, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	u := c.url(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errTransport(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	c.trace.StreamOpen(u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.trace.RequestError(http.MethodGet, u, err)
		return nil, errTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return nil, errTransport(readErr)
		}
		var root map[string]json.RawMessage
		if json.Unmarshal(data, &root) == nil {
			if remote, msg, ok := envelopeError(root); ok {
				return nil, fromAPIError(resp.StatusCode, remote, msg)
			}
		}
		return nil, &Error{
			Code:       CodeUnknownAPIError,
			Message:    "stream request failed with status " + resp.Status,
			HTTPStatus: resp.StatusCode,
		}
	}

	return &Stream{
		body:      resp.Body,
		lines:     ndjson.NewScanner(resp.Body),
		isPayload: isPayload,
		url:       u,
		trace:     c.trace,
	}, nil
}

// Next returns the next event in wire order. It returns io.EOF when the
// server closes the body and a transport error if the connection fails
// mid-stream. Events are never dropped, duplicated, or reordered.
func (s *Stream) Next() (*Event, error) {
	line, err := s.lines.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.Close()
			return nil, io.EOF
		}
		s.Close()
		return nil, errTransport(err)
	}
	ev := s.classify(line)
	s.trace.StreamEvent(s.url, ev.kind())
	return ev, nil
}

// classify applies the discrimination order: payload predicate, Heartbeat,
// StreamStatus, then the remote error shape. With no predicate configured,
// any line without a control key is treated as a payload.
func (s *Stream) classify(line []byte) *Event {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(line, &root); err != nil {
		return &Event{DecodeErr: ErrDecode(err)}
	}

	if s.isPayload != nil && s.isPayload(root) {
		return &Event{Payload: json.RawMessage(line)}
	}
	if _, ok := root["Heartbeat"]; ok {
		var hb Heartbeat
		if err := json.Unmarshal(line, &hb); err != nil {
			return &Event{DecodeErr: ErrDecode(err)}
		}
		return &Event{Heartbeat: &hb}
	}
	if _, ok := root["StreamStatus"]; ok {
		var st StreamStatus
		if err := json.Unmarshal(line, &st); err != nil {
			return &Event{DecodeErr: ErrDecode(err)}
		}
		return &Event{Status: &st}
	}
	if _, ok := root["Error"]; ok {
		var se StreamError
		if err := json.Unmarshal(line, &se); err != nil {
			return &Event{DecodeErr: ErrDecode(err)}
		}
		return &Event{Err: &se}
	}
	if s.isPayload == nil {
		return &Event{Payload: json.RawMessage(line)}
	}

	var se StreamError
	if err := json.Unmarshal(line, &se); err != nil {
		return &Event{DecodeErr: ErrDecode(err)}
	}
	return &Event{Err: &se}
}

func (e *Event) kind() string {
	switch {
	case e.Payload != nil:
		return "payload"
	case e.Heartbeat != nil:
		return "heartbeat"
	case e.Status != nil:
		return "status"
	case e.DecodeErr != nil:
		return "decode-error"
	default:
		return "error"
	}
}

// Each drives the stream, invoking fn once per event in wire order, and
// closes it on return. Returning ErrStopStream from fn terminates the stream
// gracefully and Each returns nil; any other error from fn or the transport
// is returned as-is.
func (s *Stream) Each(fn func(*Event) error) error {
	defer s.Close()
	for {
		ev, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(ev); err != nil {
			if errors.Is(err, ErrStopStream) {
				return nil
			}
			return err
		}
	}
}

// Events returns the remaining events as a lazy sequence. Breaking out of
// the range closes the stream; the sequence is not restartable.
func (s *Stream) Events() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		defer s.Close()
		for {
			ev, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// Close releases the underlying connection. It is safe to call repeatedly
// and after the stream has ended.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.trace.StreamClose(s.url)
		err = s.body.Close()
	})
	return err
}

// Time parses the heartbeat's RFC3339 timestamp.
func (h *Heartbeat) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, h.Timestamp)
}
