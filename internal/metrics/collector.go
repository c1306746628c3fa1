// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/streambridge/stream"
	"github.com/BaSui01/streambridge/types"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，实现 stream.Observer
type Collector struct {
	// 流生命周期指标
	streamsStarted     prometheus.Counter
	streamsActive      prometheus.Gauge
	streamTerminations *prometheus.CounterVec
	streamErrors       *prometheus.CounterVec
	streamDuration     *prometheus.HistogramVec

	// 数据指标
	chunksEmitted  prometheus.Counter
	bytesEmitted   prometheus.Counter
	chunkSize      prometheus.Histogram
	demandRequests *prometheus.CounterVec

	logger *zap.Logger
	mu     sync.Mutex
	starts map[string]time.Time
}

var _ stream.Observer = (*Collector)(nil)

// NewCollector 创建指标收集器，指标注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer, namespace, logger)
}

// NewCollectorWith 创建指标收集器，指标注册到 reg
func NewCollectorWith(reg prometheus.Registerer, namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
		starts: make(map[string]time.Time),
	}

	// 流生命周期指标
	c.streamsStarted = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_started_total",
			Help:      "Total number of streams that accepted a subscriber",
		},
	)

	c.streamsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Number of streams not yet terminated",
		},
	)

	c.streamTerminations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_terminations_total",
			Help:      "Total number of terminated streams",
		},
		[]string{"outcome"}, // completed, failed, cancelled
	)

	c.streamErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "Total number of failed streams by error code",
		},
		[]string{"code"},
	)

	c.streamDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_duration_seconds",
			Help:      "Stream duration from subscribe to termination in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
		[]string{"outcome"},
	)

	// 数据指标
	c.chunksEmitted = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_emitted_total",
			Help:      "Total number of chunks delivered to subscribers",
		},
	)

	c.bytesEmitted = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_emitted_total",
			Help:      "Total number of bytes delivered to subscribers",
		},
	)

	c.chunkSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_size_bytes",
			Help:      "Size of delivered chunks in bytes",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 7),
		},
	)

	c.demandRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "demand_requests_total",
			Help:      "Total number of request(n) calls",
		},
		[]string{"kind"}, // bounded, unbounded
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🌊 stream.Observer 实现
// =============================================================================

// StreamStarted 记录流开始
func (c *Collector) StreamStarted(id string) {
	c.mu.Lock()
	c.starts[id] = time.Now()
	c.mu.Unlock()

	c.streamsStarted.Inc()
	c.streamsActive.Inc()
}

// DemandRequested 记录需求请求
func (c *Collector) DemandRequested(_ string, n int64) {
	c.demandRequests.WithLabelValues(demandKind(n)).Inc()
}

// ChunkEmitted 记录推送的字节块
func (c *Collector) ChunkEmitted(_ string, size int) {
	c.chunksEmitted.Inc()
	c.bytesEmitted.Add(float64(size))
	c.chunkSize.Observe(float64(size))
}

// StreamTerminated 记录流终止
func (c *Collector) StreamTerminated(id string, outcome stream.Outcome, err error) {
	c.mu.Lock()
	start, ok := c.starts[id]
	delete(c.starts, id)
	c.mu.Unlock()

	c.streamsActive.Dec()
	c.streamTerminations.WithLabelValues(string(outcome)).Inc()
	if ok {
		c.streamDuration.WithLabelValues(string(outcome)).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.streamErrors.WithLabelValues(errorCode(err)).Inc()
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// demandKind 区分有界请求与 RequestAll
func demandKind(n int64) string {
	if n == stream.RequestAll {
		return "unbounded"
	}
	return "bounded"
}

// errorCode 将错误转换为有限的 label 值
func errorCode(err error) string {
	if code := types.GetErrorCode(err); code != "" {
		return string(code)
	}
	return "unknown"
}
