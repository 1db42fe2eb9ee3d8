package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRecorder_FlushOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink("LuxStudio", &buf)
	sink.now = func() time.Time { return time.UnixMilli(1700000000000) }

	rec := sink.New()
	rec.Dimension("Operation", "generate")
	rec.Metric("LatencyMs", 1234.5, UnitMilliseconds)
	rec.Metric("ImagesProduced", 3, UnitCount)
	rec.Property("executionId", "abc-123")
	rec.Flush()

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", output)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, output)
	}

	awsMap, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if awsMap["Timestamp"] != float64(1700000000000) {
		t.Errorf("Timestamp = %v", awsMap["Timestamp"])
	}

	cwArr, ok := awsMap["CloudWatchMetrics"].([]interface{})
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}
	cw := cwArr[0].(map[string]interface{})
	if cw["Namespace"] != "LuxStudio" {
		t.Errorf("expected namespace LuxStudio, got %v", cw["Namespace"])
	}

	if doc["Operation"] != "generate" {
		t.Errorf("expected Operation=generate, got %v", doc["Operation"])
	}
	if doc["LatencyMs"] != 1234.5 {
		t.Errorf("expected LatencyMs=1234.5, got %v", doc["LatencyMs"])
	}
	if doc["ImagesProduced"] != float64(3) {
		t.Errorf("expected ImagesProduced=3, got %v", doc["ImagesProduced"])
	}
	if doc["executionId"] != "abc-123" {
		t.Errorf("expected executionId=abc-123, got %v", doc["executionId"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewSink("Test", &buf).New().Flush()
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty recorder, got: %s", buf.String())
	}
}

func TestRecorder_NilSink(t *testing.T) {
	var sink *Sink
	// Must not panic.
	sink.New().Count("Calls").Flush()
}

func TestRecorder_Count(t *testing.T) {
	rec := NewSink("Test", nil).New()
	rec.Count("Errors")

	if v, ok := rec.values["Errors"]; !ok || v != float64(1) {
		t.Errorf("expected Errors=1, got %v", v)
	}
	if m, ok := rec.metrics["Errors"]; !ok || m.Unit != UnitCount {
		t.Errorf("expected unit Count, got %v", m.Unit)
	}
}

func TestRecorder_Chaining(t *testing.T) {
	rec := NewSink("Test", nil).New().
		Dimension("Op", "test").
		Duration("Duration", 100*time.Millisecond).
		Count("Calls").
		Property("id", "xyz")

	if rec.dimensions["Op"] != "test" {
		t.Error("chaining Dimension failed")
	}
	if rec.values["Duration"] != float64(100) {
		t.Error("chaining Duration failed")
	}
	if rec.metrics["Duration"].Unit != UnitMilliseconds {
		t.Error("Duration should use milliseconds")
	}
	if rec.values["Calls"] != float64(1) {
		t.Error("chaining Count failed")
	}
	if rec.properties["id"] != "xyz" {
		t.Error("chaining Property failed")
	}
}
