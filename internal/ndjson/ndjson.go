// Package ndjson reads newline-delimited JSON wire streams.
package ndjson

import (
	"bufio"
	"bytes"
	"io"
)

// Scanner splits a reader into complete, non-blank lines. A read that ends
// mid-line is buffered until its continuation arrives, so one logical line
// split across transport chunks yields exactly one result. A trailing
// unterminated line is returned before io.EOF.
type Scanner struct {
	r    *bufio.Reader
	err  error
	done bool
}

// NewScanner wraps r, typically a streaming HTTP response body.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Next returns the next non-blank line with surrounding whitespace trimmed.
// It returns io.EOF after the final line, or the transport error that ended
// the stream. Once ended, the scanner stays ended.
func (s *Scanner) Next() ([]byte, error) {
	if s.done {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}

	for {
		line, err := s.r.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)

		switch {
		case err == nil:
			if len(trimmed) == 0 {
				continue
			}
			return trimmed, nil
		case err == io.EOF:
			s.done = true
			if len(trimmed) > 0 {
				return trimmed, nil
			}
			return nil, io.EOF
		default:
			// A partial line cut off by a transport fault cannot be
			// completed; surface the fault.
			s.done = true
			s.err = err
			return nil, err
		}
	}
}
