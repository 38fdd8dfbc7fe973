package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitWithWriter("test-service", false, &buf)
	SetLevel("debug")
	t.Cleanup(func() {
		Logger = zerolog.Nop()
		SetLevel("info")
	})
	return &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestWithContext_AddsTraceIDs(t *testing.T) {
	buf := capture(t)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	Info(ctx).Msg("with span")
	line := lastLine(t, buf)
	assert.Equal(t, sc.TraceID().String(), line["trace_id"])
	assert.Equal(t, sc.SpanID().String(), line["span_id"])
	assert.Equal(t, "test-service", line["service"])

	Info(context.Background()).Msg("without span")
	assert.NotContains(t, lastLine(t, buf), "trace_id")
}

func TestSetLevel(t *testing.T) {
	buf := capture(t)

	SetLevel("warn")
	Info(context.Background()).Msg("dropped")
	assert.Empty(t, buf.String())

	Warn(context.Background()).Msg("kept")
	assert.Equal(t, "kept", lastLine(t, buf)["message"])
}

func TestRetryable(t *testing.T) {
	buf := capture(t)

	Retryable("funds-provider").Warn("retrying request", "url", "http://x/funds", "attempt", 2, "dangling")
	line := lastLine(t, buf)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "funds-provider", line["component"])
	assert.Equal(t, "http://x/funds", line["url"])
	assert.Equal(t, float64(2), line["attempt"])
	assert.NotContains(t, line, "dangling")
}
