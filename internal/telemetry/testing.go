package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry installs in-memory providers as the otel globals for the
// duration of a test. Create it before the service under test, since
// services bind their tracer and meter at construction.
type TestTelemetry struct {
	*Telemetry
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

// NewTestTelemetry installs recording providers and restores the previous
// globals when tb finishes.
func NewTestTelemetry(tb testing.TB) *TestTelemetry {
	tb.Helper()
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	tt := &TestTelemetry{
		Telemetry: &Telemetry{
			cfg:     cfg,
			tracers: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
			meters:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		},
		spans:  spans,
		reader: reader,
	}

	prevTracers, prevMeters := otel.GetTracerProvider(), otel.GetMeterProvider()
	tt.install()
	tb.Cleanup(func() {
		otel.SetTracerProvider(prevTracers)
		otel.SetMeterProvider(prevMeters)
		_ = tt.Shutdown(context.Background())
	})
	return tt
}

// Span returns the first ended span named name, or nil.
func (t *TestTelemetry) Span(name string) sdktrace.ReadOnlySpan {
	for _, s := range t.spans.Ended() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// AssertSpan fails tb unless a span named name ended carrying every attr.
func (t *TestTelemetry) AssertSpan(tb testing.TB, name string, attrs ...attribute.KeyValue) {
	tb.Helper()
	s := t.Span(name)
	if s == nil {
		var names []string
		for _, e := range t.spans.Ended() {
			names = append(names, e.Name())
		}
		tb.Errorf("span %q not ended; got %v", name, names)
		return
	}
	got := attribute.NewSet(s.Attributes()...)
	for _, want := range attrs {
		v, ok := got.Value(want.Key)
		if !ok || v != want.Value {
			tb.Errorf("span %q: %s = %v, want %v", name, want.Key, v.Emit(), want.Value.Emit())
		}
	}
}

// Counter sums an int64 counter across the data points whose attributes
// include every attr. An unrecorded counter is 0.
func (t *TestTelemetry) Counter(tb testing.TB, name string, attrs ...attribute.KeyValue) int64 {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(context.Background(), &rm); err != nil {
		tb.Fatalf("collect metrics: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if m.Name != name || !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if hasAll(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAll(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, a := range attrs {
		if v, ok := set.Value(a.Key); !ok || v != a.Value {
			return false
		}
	}
	return true
}
