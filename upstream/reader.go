package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const readChunkSize = 4096

var frameDelimiter = []byte("\n\n")

// ParseError reports a single malformed frame. It is recoverable: the
// reader stays usable and subsequent frames decode normally.
type ParseError struct {
	Frame string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse upstream frame: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader incrementally decodes an SSE-framed upstream event stream. Bytes
// are buffered until a blank-line frame delimiter arrives; each complete
// frame's data lines are joined and decoded as one Event.
type Reader struct {
	src     io.Reader
	buf     []byte
	chunk   []byte
	readErr error
}

func NewReader(src io.Reader) *Reader {
	return &Reader{
		src:   src,
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next upstream event. It returns io.EOF once the stream
// is exhausted, a *ParseError for a malformed frame, and any other error
// verbatim when the underlying read fails.
func (r *Reader) Next() (Event, error) {
	if r == nil || r.src == nil {
		return Event{}, io.EOF
	}
	for {
		if idx := bytes.Index(r.buf, frameDelimiter); idx >= 0 {
			frame := r.buf[:idx]
			r.buf = r.buf[idx+len(frameDelimiter):]
			payload := extractData(frame)
			if len(payload) == 0 {
				continue
			}
			return decodeFrame(payload)
		}

		if r.readErr != nil {
			// Flush whatever remains before surfacing the error. A
			// trailing frame may legitimately lack its delimiter.
			if payload := extractData(r.buf); len(payload) > 0 {
				r.buf = nil
				return decodeFrame(payload)
			}
			return Event{}, r.readErr
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.buf = append(r.buf, r.chunk[:n]...)
		}
		if err != nil {
			r.readErr = err
		}
	}
}

// extractData keeps only data-marked lines of a frame, strips the marker,
// and joins the remainders with newlines per the SSE wire format.
func extractData(frame []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if len(data) == 0 {
			continue
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, data...)
	}
	return out
}

func decodeFrame(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, &ParseError{Frame: string(payload), Err: err}
	}
	return ev, nil
}
