package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithTrace_NoSpanPassesThrough(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	WithTrace(context.Background(), log).Info("plain")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Empty(t, entries[0].Context)
}

func TestWithTrace_AttachesTraceAndSpanIDs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	tid, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	WithTrace(ctx, log).Info("traced")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, tid.String(), fields["trace_id"])
	require.Equal(t, sid.String(), fields["span_id"])
}

func TestWithTrace_NilLogger(t *testing.T) {
	require.Nil(t, WithTrace(context.Background(), nil))
}
