package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultConfig("test-service")
	cfg.Level = level
	cfg.Output = &buf
	return New(cfg), &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines[len(lines)-1])
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLogLevelParsing(t *testing.T) {
	tests := []struct {
		level LogLevel
		debug bool
		info  bool
	}{
		{LevelDebug, true, true},
		{"DEBUG", true, true},
		{LevelWarn, false, false},
		{"nonsense", false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			logger, _ := newBufferLogger(tt.level)
			ctx := context.Background()
			assert.Equal(t, tt.debug, logger.Enabled(ctx, -4))
			assert.Equal(t, tt.info, logger.Enabled(ctx, 0))
		})
	}
}

func TestWithContext_AddsRequestScopedFields(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithTenantID(ctx, "acme")
	logger.WithContext(ctx).Info("hello")

	entry := lastEntry(t, buf)
	assert.Equal(t, "req-1", entry["requestId"])
	assert.Equal(t, "acme", entry["tenantId"])
	assert.Equal(t, "test-service", entry["service"])
	assert.NotContains(t, entry, "correlationId")
}

func TestWithContext_FallsBackToSpanTraceID(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.WithContext(ctx).Info("relay")

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", lastEntry(t, buf)["traceId"])
}

func TestEvent_NestsData(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.Event(context.Background(), "fulfillment.created", map[string]any{"fulfillmentId": "OFR-00000001"})

	entry := lastEntry(t, buf)
	assert.Equal(t, "fulfillment.created", entry["eventType"])
	data, ok := entry["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "OFR-00000001", data["fulfillmentId"])
}

func TestSagaStep_LevelFollowsOutcome(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)
	ctx := context.Background()

	logger.SagaStep(ctx, "container", "debit", 15*time.Millisecond, nil)
	entry := lastEntry(t, buf)
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, true, entry["success"])

	logger.SagaStep(ctx, "container", "debit", time.Millisecond, errors.New("boom"))
	entry = lastEntry(t, buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "boom", entry["error"])
}

func TestUserIDFromContext(t *testing.T) {
	assert.Equal(t, "system", UserIDFromContext(context.Background()))
	assert.Equal(t, "u-7", UserIDFromContext(ContextWithUserID(context.Background(), "u-7")))
}
