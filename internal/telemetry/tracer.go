package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/streambridge/stream"
	"github.com/BaSui01/streambridge/types"
)

const instrumentationName = "github.com/BaSui01/streambridge/stream"

// StreamTracer 为每条流创建一个 span，并记录 OTel 指标。
// span 在 StreamStarted 时开始，在 StreamTerminated 时结束。
type StreamTracer struct {
	tracer trace.Tracer
	logger *zap.Logger

	bytes  metric.Int64Counter
	chunks metric.Int64Counter
	ended  metric.Int64Counter

	mu    sync.Mutex
	spans map[string]*streamSpan
}

type streamSpan struct {
	span   trace.Span
	ctx    context.Context
	chunks int64
	bytes  int64
}

var _ stream.Observer = (*StreamTracer)(nil)

// NewStreamTracer 创建 StreamTracer
func NewStreamTracer(tp trace.TracerProvider, mp metric.MeterProvider, logger *zap.Logger) (*StreamTracer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := mp.Meter(instrumentationName)

	bytes, err := meter.Int64Counter("streambridge.stream.bytes",
		metric.WithDescription("Bytes delivered to subscribers"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("create bytes counter: %w", err)
	}
	chunks, err := meter.Int64Counter("streambridge.stream.chunks",
		metric.WithDescription("Chunks delivered to subscribers"))
	if err != nil {
		return nil, fmt.Errorf("create chunks counter: %w", err)
	}
	ended, err := meter.Int64Counter("streambridge.stream.terminations",
		metric.WithDescription("Terminated streams by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create terminations counter: %w", err)
	}

	return &StreamTracer{
		tracer: tp.Tracer(instrumentationName),
		logger: logger.With(zap.String("component", "stream_tracer")),
		bytes:  bytes,
		chunks: chunks,
		ended:  ended,
		spans:  make(map[string]*streamSpan),
	}, nil
}

func (t *StreamTracer) StreamStarted(id string) {
	ctx, span := t.tracer.Start(context.Background(), "stream",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("stream.id", id)))

	t.mu.Lock()
	t.spans[id] = &streamSpan{span: span, ctx: ctx}
	t.mu.Unlock()
}

func (t *StreamTracer) DemandRequested(id string, n int64) {
	if s := t.get(id); s != nil {
		s.span.AddEvent("request", trace.WithAttributes(attribute.Int64("stream.demand", n)))
	}
}

func (t *StreamTracer) ChunkEmitted(id string, size int) {
	s := t.get(id)
	if s == nil {
		return
	}
	t.mu.Lock()
	s.chunks++
	s.bytes += int64(size)
	t.mu.Unlock()

	t.chunks.Add(s.ctx, 1)
	t.bytes.Add(s.ctx, int64(size))
}

func (t *StreamTracer) StreamTerminated(id string, outcome stream.Outcome, err error) {
	t.mu.Lock()
	s, ok := t.spans[id]
	delete(t.spans, id)
	t.mu.Unlock()
	if !ok {
		t.logger.Debug("termination for unknown stream", zap.String("stream_id", id))
		return
	}

	s.span.SetAttributes(
		attribute.String("stream.outcome", string(outcome)),
		attribute.Int64("stream.chunks", s.chunks),
		attribute.Int64("stream.bytes", s.bytes),
	)
	if err != nil {
		if code := types.GetErrorCode(err); code != "" {
			s.span.SetAttributes(attribute.String("stream.error_code", string(code)))
		}
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()

	t.ended.Add(s.ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

func (t *StreamTracer) get(id string) *streamSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans[id]
}
