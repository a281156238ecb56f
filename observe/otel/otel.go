// Package otel bridges the gateway's observe.Sink to OpenTelemetry tracing,
// so translated runs and their tool calls are visible in any OTel-compatible
// backend.
package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/consolehq/agui-gateway/observe"
)

const instrumentationName = "github.com/consolehq/agui-gateway"

// Sink implements observe.Sink by emitting one span per event.
type Sink struct {
	tracer trace.Tracer
}

// NewSink creates an OTel sink using the given TracerProvider, falling back
// to a noop provider when tp is nil.
func NewSink(tp trace.TracerProvider) *Sink {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Sink{tracer: tp.Tracer(instrumentationName)}
}

func (s *Sink) Emit(_ context.Context, event observe.Event) error {
	event.Normalize()

	_, span := s.tracer.Start(context.Background(), spanNameFor(event), trace.WithTimestamp(event.Timestamp))

	attrs := []attribute.KeyValue{
		attribute.String("agui.event.kind", string(event.Kind)),
	}
	if event.RunID != "" {
		attrs = append(attrs, attribute.String("agui.run.id", event.RunID))
	}
	if event.ThreadID != "" {
		attrs = append(attrs, attribute.String("agui.thread.id", event.ThreadID))
	}
	if event.SessionID != "" {
		attrs = append(attrs, attribute.String("agui.session.id", event.SessionID))
	}
	if event.ToolName != "" {
		attrs = append(attrs, attribute.String("agui.tool.name", event.ToolName))
	}
	if event.Status != "" {
		attrs = append(attrs, attribute.String("agui.status", string(event.Status)))
	}
	if event.Message != "" {
		attrs = append(attrs, attribute.String("agui.message", truncate(event.Message, 1024)))
	}
	if event.DurationMs > 0 {
		attrs = append(attrs, attribute.Int64("agui.duration_ms", event.DurationMs))
	}
	for k, v := range event.Attributes {
		attrs = append(attrs, attribute.String("agui.attr."+k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)

	switch event.Status {
	case observe.StatusFailed:
		span.SetStatus(codes.Error, event.Error)
		if event.Error != "" {
			span.RecordError(fmt.Errorf("%s", event.Error))
		}
	case observe.StatusCompleted:
		span.SetStatus(codes.Ok, "")
	}

	end := event.Timestamp
	if event.DurationMs > 0 {
		end = end.Add(time.Duration(event.DurationMs) * time.Millisecond)
	}
	span.End(trace.WithTimestamp(end))
	return nil
}

func spanNameFor(event observe.Event) string {
	switch event.Kind {
	case observe.KindRun:
		return "agui.run"
	case observe.KindFrame:
		return "agui.frame"
	case observe.KindTool:
		if event.ToolName != "" {
			return "agui.tool." + event.ToolName
		}
		return "agui.tool"
	default:
		return "agui.stream"
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

var _ observe.Sink = (*Sink)(nil)
