package tracing

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_NoEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "voice-agent", func(string) string { return "" })
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestNewProvider_ServiceName(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := NewProvider("voice-agent-test", sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	var found bool
	for _, attr := range spans[0].Resource.Attributes() {
		if attr.Key == "service.name" && attr.Value.AsString() == "voice-agent-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("service.name missing from resource: %v", spans[0].Resource.Attributes())
	}
}
