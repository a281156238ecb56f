package otel

import (
	"context"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/consolehq/agui-gateway/observe"
)

func newTestSink(t *testing.T) (*Sink, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return NewSink(tp), exporter
}

func TestSinkEmitsRunSpan(t *testing.T) {
	sink, exporter := newTestSink(t)
	err := sink.Emit(context.Background(), observe.Event{
		Kind:       observe.KindRun,
		Status:     observe.StatusCompleted,
		RunID:      "r1",
		ThreadID:   "t1",
		DurationMs: 120,
	})
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "agui.run" {
		t.Fatalf("unexpected span name %q", span.Name)
	}
	attrs := map[string]string{}
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["agui.run.id"] != "r1" || attrs["agui.thread.id"] != "t1" {
		t.Fatalf("identity attributes missing: %v", attrs)
	}
	if got := span.EndTime.Sub(span.StartTime); got != 120*time.Millisecond {
		t.Fatalf("span duration should mirror the event duration, got %v", got)
	}
}

func TestSinkNamesToolSpans(t *testing.T) {
	sink, exporter := newTestSink(t)
	_ = sink.Emit(context.Background(), observe.Event{
		Kind:     observe.KindTool,
		Status:   observe.StatusStarted,
		ToolName: "search",
	})
	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "agui.tool.search" {
		t.Fatalf("unexpected spans: %+v", spans)
	}
}

func TestSinkMarksFailures(t *testing.T) {
	sink, exporter := newTestSink(t)
	_ = sink.Emit(context.Background(), observe.Event{
		Kind:   observe.KindStream,
		Status: observe.StatusFailed,
		Error:  "connection reset",
	})
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Description != "connection reset" {
		t.Fatalf("unexpected span status: %+v", spans[0].Status)
	}
	if len(spans[0].Events) == 0 {
		t.Fatal("expected a recorded error event")
	}
}

func TestNewSinkNilProviderIsNoop(t *testing.T) {
	sink := NewSink(nil)
	if err := sink.Emit(context.Background(), observe.Event{Kind: observe.KindRun}); err != nil {
		t.Fatalf("noop sink emit failed: %v", err)
	}
}
