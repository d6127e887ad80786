// Package sse reads server-sent events from a byte stream.
//
// Chat completion endpoints frame their streams as SSE: each event
// carries a JSON payload on one or more "data:" lines, and the final
// event is the literal "[DONE]".
package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// doneMessage is the sentinel payload that terminates a stream.
const doneMessage = "[DONE]"

const (
	initialBufferSize = 64 * 1024
	maxBufferSize     = 10 * 1024 * 1024
)

// Scanner yields the data payload of each event in an SSE stream. It
// skips comments and non-data fields, joins multi-line data with
// newlines, and reports io.EOF once the stream ends or the [DONE]
// sentinel arrives.
type Scanner struct {
	scanner *bufio.Scanner
	done    bool
	err     error
}

// NewScanner reads events from r. Lines longer than the default bufio
// limit are fine; the buffer grows up to 10 MiB.
func NewScanner(r io.Reader) *Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufferSize), maxBufferSize)
	return &Scanner{scanner: scanner}
}

// Next returns the data payload of the next event. It returns io.EOF at
// the end of the stream or after the [DONE] sentinel, and whatever read
// error the underlying stream produced otherwise. Errors are sticky.
func (s *Scanner) Next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	var data []byte
	sawData := false
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			// Blank line ends the event.
			if !sawData || len(data) == 0 {
				sawData = false
				data = data[:0]
				continue
			}
			return s.emit(data)
		}
		if strings.HasPrefix(line, ":") {
			// Comment, typically a keep-alive ping.
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		if field != "data" {
			// event, id and retry fields carry nothing we need.
			continue
		}
		if sawData {
			data = append(data, '\n')
		}
		data = append(data, strings.TrimPrefix(value, " ")...)
		sawData = true
	}
	if err := s.scanner.Err(); err != nil {
		s.err = err
		return nil, err
	}
	s.err = io.EOF
	if sawData && len(data) > 0 {
		// The stream ended without a trailing blank line; still emit
		// the last event.
		return s.emit(data)
	}
	return nil, io.EOF
}

func (s *Scanner) emit(data []byte) ([]byte, error) {
	if string(bytes.TrimSpace(data)) == doneMessage {
		s.done = true
		s.err = io.EOF
		return nil, io.EOF
	}
	return data, nil
}

// Done reports whether the [DONE] sentinel was seen. A stream that ends
// without it was probably cut short.
func (s *Scanner) Done() bool {
	return s.done
}
