package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestContextFields(t *testing.T) {
	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, ContextFields(context.Background()))
	})

	t.Run("span context", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		spanID, _ := trace.SpanIDFromHex("0102030405060708")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		fields := ContextFields(ctx)
		keys := make(map[string]string, len(fields))
		for _, f := range fields {
			keys[f.Key] = f.String
		}
		assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", keys["trace_id"])
		assert.Equal(t, "0102030405060708", keys["span_id"])
	})

	t.Run("user and request", func(t *testing.T) {
		ctx := WithRequestID(WithUserID(context.Background(), "u1"), "r1")
		assert.Equal(t, "u1", UserIDFromContext(ctx))
		assert.Equal(t, "r1", RequestIDFromContext(ctx))
		assert.Len(t, ContextFields(ctx), 2)
	})
}
