package upstream

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkReader returns at most one byte per Read to exercise incremental
// frame assembly.
type chunkReader struct {
	data string
	pos  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

func TestReaderSplitsFrames(t *testing.T) {
	stream := "data: {\"id\":\"e1\",\"author\":\"assistant\"}\n\ndata: {\"id\":\"e2\"}\n\n"
	r := NewReader(strings.NewReader(stream))

	first, err := r.Next()
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if first.ID != "e1" || first.Author != "assistant" {
		t.Fatalf("unexpected first event: %+v", first)
	}
	second, err := r.Next()
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if second.ID != "e2" {
		t.Fatalf("unexpected second event: %+v", second)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReaderReassemblesAcrossChunks(t *testing.T) {
	r := NewReader(&chunkReader{data: "data: {\"id\":\"e1\"}\n\n"})
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.ID != "e1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestReaderJoinsMultipleDataLines(t *testing.T) {
	stream := "data: {\"id\":\ndata: \"e1\"}\n\n"
	r := NewReader(strings.NewReader(stream))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.ID != "e1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestReaderIgnoresNonDataLines(t *testing.T) {
	stream := ": keepalive\n\nevent: update\ndata: {\"id\":\"e1\"}\n\n"
	r := NewReader(strings.NewReader(stream))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.ID != "e1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestReaderHandlesCRLF(t *testing.T) {
	stream := "data: {\"id\":\"e1\"}\r\n\ndata: {\"id\":\"e2\"}\n\n"
	r := NewReader(strings.NewReader(stream))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.ID != "e1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestReaderRecoversFromMalformedFrame(t *testing.T) {
	stream := "data: {\"id\":\"e1\"}\n\ndata: {not json\n\ndata: {\"id\":\"e3\"}\n\n"
	r := NewReader(strings.NewReader(stream))

	if ev, err := r.Next(); err != nil || ev.ID != "e1" {
		t.Fatalf("first frame: ev=%+v err=%v", ev, err)
	}

	_, err := r.Next()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Frame != "{not json" {
		t.Fatalf("unexpected frame payload: %q", parseErr.Frame)
	}

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("frame after parse error: %v", err)
	}
	if ev.ID != "e3" {
		t.Fatalf("reader did not recover: %+v", ev)
	}
}

func TestReaderFlushesTrailingFrame(t *testing.T) {
	// No final delimiter before EOF.
	stream := "data: {\"id\":\"e1\"}"
	r := NewReader(strings.NewReader(stream))
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.ID != "e1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after trailing frame, got %v", err)
	}
}
