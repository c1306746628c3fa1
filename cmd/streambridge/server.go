package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/streambridge/config"
	"github.com/BaSui01/streambridge/internal/metrics"
	"github.com/BaSui01/streambridge/internal/pool"
	"github.com/BaSui01/streambridge/internal/server"
	"github.com/BaSui01/streambridge/internal/telemetry"
	"github.com/BaSui01/streambridge/sink"
	"github.com/BaSui01/streambridge/stream"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 把同一个文件推送给每个 WebSocket 客户端
type Server struct {
	cfg      *config.Config
	file     string
	logger   *zap.Logger
	registry *prometheus.Registry

	handler     http.Handler
	httpManager *server.Manager
	streams     *pool.GoroutinePool
	observer    stream.Observer
}

// NewServer 创建服务器。reg 为 nil 时创建新的 Registry 并注册 Go 运行时指标。
func NewServer(cfg *config.Config, file string, logger *zap.Logger, providers *telemetry.Providers, reg *prometheus.Registry) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	s := &Server{
		cfg:      cfg,
		file:     file,
		logger:   logger,
		registry: reg,
		streams: pool.NewGoroutinePool(pool.GoroutinePoolConfig{
			MaxWorkers: cfg.Server.MaxConcurrentStreams,
			QueueSize:  cfg.Server.StreamQueueSize,
		}, logger),
	}

	// 1. 观察者：Prometheus + OTel
	var observers []stream.Observer
	if cfg.Metrics.Enabled {
		observers = append(observers, metrics.NewCollectorWith(reg, cfg.Metrics.Namespace, logger))
		for _, c := range s.streams.Collectors(cfg.Metrics.Namespace) {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register pool metrics: %w", err)
			}
		}
	}
	tracer, err := providers.StreamTracer(logger)
	if err != nil {
		return nil, fmt.Errorf("create stream tracer: %w", err)
	}
	observers = append(observers, tracer)
	s.observer = stream.Observers(observers...)

	// 2. HTTP 服务器
	s.handler = s.routes()
	s.httpManager = server.NewManager(s.handler, server.FromServerConfig(cfg.Server), logger)
	return s, nil
}

// =============================================================================
// 🌐 路由
// =============================================================================

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.cfg.Metrics.Enabled {
		mux.Handle("GET "+s.cfg.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		OTelTracing(),
	)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	stats := s.streams.Stats()
	fmt.Fprintf(w, `{"status":"ok","version":%q,"active_streams":%d,"queued_streams":%d}`,
		Version, stats.Active, stats.Queued)
}

// handleStream 为连接分配一个流任务。池满时返回 503，不升级连接。
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// 任务结束前处理函数不能返回：升级前任务仍在使用 w
	err := s.streams.Execute(context.WithoutCancel(r.Context()), func(context.Context) error {
		return s.serveStream(r.Context(), w, r)
	})
	switch {
	case errors.Is(err, pool.ErrPoolFull), errors.Is(err, pool.ErrPoolClosed):
		s.logger.Warn("stream rejected", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
		w.Header().Set("Retry-After", "1")
		http.Error(w, "too many concurrent streams", http.StatusServiceUnavailable)
	case err != nil:
		s.logger.Debug("stream ended with error", zap.Error(err))
	}
}

func (s *Server) serveStream(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return fmt.Errorf("accept websocket: %w", err)
	}
	defer conn.CloseNow()

	// 客户端只接收数据，读到任何消息或断开都会取消 ctx
	ctx = conn.CloseRead(ctx)

	src, err := s.openSource(ctx)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "source unavailable")
		return err
	}

	opts := []stream.Option{
		stream.WithChunkSize(s.cfg.Stream.ChunkSize),
		stream.WithLogger(s.logger),
		stream.WithObserver(s.observer),
	}
	if id := RequestIDFromContext(r.Context()); id != "" {
		opts = append(opts, stream.WithStreamID(id))
	}
	pub, err := stream.NewPublisher(src, opts...)
	if err != nil {
		_ = src.Close()
		_ = conn.Close(websocket.StatusInternalError, "invalid stream configuration")
		return err
	}

	sub := sink.NewWebSocketSubscriber(ctx, conn, s.cfg.Server.MessageWriteTimeout, s.logger).
		WithBatch(s.cfg.Stream.RequestBatch)
	stop := context.AfterFunc(ctx, sub.Cancel)
	defer stop()

	pub.Subscribe(sub)

	s.logger.Debug("stream finished",
		zap.String("stream_id", pub.ID()),
		zap.Int64("bytes", sub.Sent()),
		zap.Error(sub.Err()),
	)
	return sub.Err()
}

// openSource 每个连接独立打开文件
func (s *Server) openSource(ctx context.Context) (stream.Source, error) {
	f, err := os.Open(s.file)
	if err != nil {
		return nil, fmt.Errorf("open stream file: %w", err)
	}
	return pacedSource(ctx, stream.NewFileSource(f), s.cfg.Source), nil
}

// pacedSource 配置了速率上限时包装为限速数据源
func pacedSource(ctx context.Context, src stream.Source, cfg config.SourceConfig) stream.Source {
	if cfg.RateLimitBPS <= 0 {
		return src
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitBPS), cfg.RateBurst)
	return stream.NewPacedSource(ctx, src, limiter)
}

// =============================================================================
// 🚀 生命周期
// =============================================================================

// Run 启动 HTTP 服务并阻塞到 ctx 取消。
// 关闭时先停止 HTTP 服务（取消进行中的流），再等待流任务退出。
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving stream",
		zap.String("file", s.file),
		zap.String("addr", s.cfg.Server.Addr),
		zap.Int("chunk_size", s.cfg.Stream.ChunkSize),
		zap.Int("max_concurrent_streams", s.cfg.Server.MaxConcurrentStreams),
	)
	err := s.httpManager.Run(ctx)
	s.streams.Close()
	return err
}

// Handler 返回带中间件的路由
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close 停止接收流任务并等待进行中的任务退出，供未调用 Run 的场景使用
func (s *Server) Close() {
	s.streams.Close()
}
