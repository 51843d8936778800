package otel_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	adapter "github.com/neomorfeo/garagedesk/internal/adapter/otel"
)

func TestSetup_StdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	providers, err := adapter.Setup(context.Background(), adapter.Config{
		ServiceName:    "garagedesk-test",
		ServiceVersion: "0.0.1",
		Environment:    "test",
		Exporter:       adapter.ExporterStdout,
		Writer:         &buf,
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, span := otel.Tracer("provider-test").Start(context.Background(), "setup.evaluate")
	span.End()

	if err := providers.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "setup.evaluate") {
		t.Errorf("exported output does not mention the span:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "garagedesk-test") {
		t.Errorf("exported output does not carry the service name")
	}
}

func TestSetup_NoneExporter(t *testing.T) {
	providers, err := adapter.Setup(context.Background(), adapter.Config{Exporter: adapter.ExporterNone})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := providers.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestSetup_InvalidExporter(t *testing.T) {
	_, err := adapter.Setup(context.Background(), adapter.Config{
		ServiceName: "garagedesk-test",
		Exporter:    "kafka",
	})
	if err == nil {
		t.Fatal("expected error for invalid exporter")
	}
	if !strings.Contains(err.Error(), "kafka") {
		t.Errorf("error %q should name the exporter", err)
	}
}
