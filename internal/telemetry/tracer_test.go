package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/streambridge/stream"
	"github.com/BaSui01/streambridge/types"
)

func newTestTracer(t *testing.T) (*StreamTracer, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	st, err := NewStreamTracer(tp, mp, zaptest.NewLogger(t))
	require.NoError(t, err)
	return st, sr, reader
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestStreamTracer_CompletedStream(t *testing.T) {
	st, sr, reader := newTestTracer(t)

	p, err := stream.NewPublisher(stream.NewBytesSource([]byte("abcdefg")),
		stream.WithChunkSize(4), stream.WithObserver(st), stream.WithStreamID("s-1"))
	require.NoError(t, err)
	p.Subscribe(&stream.SubscriberFuncs{
		SubscribeFunc: func(s stream.Subscription) { s.Request(10) },
	})

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "stream", span.Name())

	attrs := spanAttrs(span)
	assert.Equal(t, "s-1", attrs["stream.id"].AsString())
	assert.Equal(t, "completed", attrs["stream.outcome"].AsString())
	assert.Equal(t, int64(2), attrs["stream.chunks"].AsInt64())
	assert.Equal(t, int64(7), attrs["stream.bytes"].AsInt64())
	assert.Equal(t, codes.Unset, span.Status().Code)

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "request", span.Events()[0].Name)

	assert.Equal(t, int64(7), sumOf(t, reader, "streambridge.stream.bytes"))
	assert.Equal(t, int64(2), sumOf(t, reader, "streambridge.stream.chunks"))
	assert.Equal(t, int64(1), sumOf(t, reader, "streambridge.stream.terminations"))
	assert.Empty(t, st.spans)
}

func TestStreamTracer_FailedStream(t *testing.T) {
	st, sr, _ := newTestTracer(t)

	st.StreamStarted("s-2")
	st.StreamTerminated("s-2", stream.OutcomeFailed, types.NewSourceCloseError("s-2", errors.New("close failed")))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "SOURCE_CLOSE", spanAttrs(spans[0])["stream.error_code"].AsString())

	var sawException bool
	for _, ev := range spans[0].Events() {
		if ev.Name == "exception" {
			sawException = true
		}
	}
	assert.True(t, sawException)
}

func TestStreamTracer_UnknownStreamIgnored(t *testing.T) {
	st, sr, _ := newTestTracer(t)

	assert.NotPanics(t, func() {
		st.DemandRequested("missing", 1)
		st.ChunkEmitted("missing", 10)
		st.StreamTerminated("missing", stream.OutcomeCancelled, nil)
	})
	assert.Empty(t, sr.Ended())
}
