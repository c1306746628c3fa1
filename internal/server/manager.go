package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/streambridge/config"
	"github.com/BaSui01/streambridge/internal/tlsutil"
)

// =============================================================================
// 🌐 HTTP 服务器管理器
// =============================================================================

// Manager HTTP 服务器管理器
type Manager struct {
	server   *http.Server
	listener net.Listener
	errCh    chan error
	config   Config
	logger   *zap.Logger
	mu       sync.RWMutex
	closed   bool

	// baseCtx 是所有请求上下文的父上下文，Shutdown 开始时取消。
	// 已升级的 WebSocket 连接不受 http.Server.Shutdown 管理，靠它结束推送。
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// Config 服务器配置
type Config struct {
	// 监听地址
	Addr string

	// 读取超时
	ReadTimeout time.Duration

	// 写入超时
	WriteTimeout time.Duration

	// 空闲超时
	IdleTimeout time.Duration

	// 最大请求头大小
	MaxHeaderBytes int

	// 优雅关闭超时
	ShutdownTimeout time.Duration

	// TLS 证书与私钥，均非空时 Run 使用 HTTPS
	TLSCertFile string
	TLSKeyFile  string
}

// DefaultConfig 返回默认服务器配置
func DefaultConfig() Config {
	return FromServerConfig(config.DefaultServerConfig())
}

// FromServerConfig 从应用配置构建服务器配置
func FromServerConfig(c config.ServerConfig) Config {
	return Config{
		Addr:            c.Addr,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		IdleTimeout:     c.IdleTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: c.ShutdownTimeout,
		TLSCertFile:     c.TLSCertFile,
		TLSKeyFile:      c.TLSKeyFile,
	}
}

// NewManager 创建服务器管理器
func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return baseCtx },
		TLSConfig:      tlsutil.ServerTLSConfig(),
	}
	server.RegisterOnShutdown(cancel)

	return &Manager{
		server:     server,
		errCh:      make(chan error, 1),
		config:     cfg,
		logger:     logger.With(zap.String("component", "http_server")),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Start 启动服务器（非阻塞）
func (m *Manager) Start() error {
	return m.start("", "")
}

// StartTLS 启动 HTTPS 服务器（非阻塞）
func (m *Manager) StartTLS(certFile, keyFile string) error {
	if certFile == "" || keyFile == "" {
		return errors.New("both certificate and key files are required")
	}
	return m.start(certFile, keyFile)
}

func (m *Manager) start(certFile, keyFile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("server is closed")
	}

	if m.listener != nil {
		return fmt.Errorf("server already started")
	}

	listener, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.config.Addr, err)
	}
	m.listener = listener

	if certFile != "" {
		m.logger.Info("starting HTTPS server",
			zap.String("addr", listener.Addr().String()),
			zap.String("cert", certFile),
		)
	} else {
		m.logger.Info("starting HTTP server", zap.String("addr", listener.Addr().String()))
	}

	go m.serve(listener, certFile, keyFile)

	return nil
}

func (m *Manager) serve(listener net.Listener, certFile, keyFile string) {
	var err error
	if certFile != "" {
		err = m.server.ServeTLS(listener, certFile, keyFile)
	} else {
		err = m.server.Serve(listener)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error("HTTP server failed", zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}
}

// Run 启动服务器并阻塞，直到 ctx 取消或服务异常退出，随后优雅关闭。
// ctx 正常取消时返回 nil。
func (m *Manager) Run(ctx context.Context) error {
	var err error
	if m.config.TLSCertFile != "" && m.config.TLSKeyFile != "" {
		err = m.StartTLS(m.config.TLSCertFile, m.config.TLSKeyFile)
	} else {
		err = m.Start()
	}
	if err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		m.logger.Info("shutdown requested", zap.Error(context.Cause(ctx)))
	case runErr = <-m.errCh:
		m.logger.Error("server exited unexpectedly", zap.Error(runErr))
	}

	if err := m.Shutdown(context.Background()); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// Shutdown 优雅关闭服务器
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	m.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	err := m.server.Shutdown(shutdownCtx)
	m.cancelBase()
	if err != nil {
		m.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}

	m.logger.Info("HTTP server stopped")
	return nil
}

// Errors returns asynchronous server errors.
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Context 返回请求的父上下文，关闭开始时取消
func (m *Manager) Context() context.Context {
	return m.baseCtx
}

// =============================================================================
// 🔧 辅助方法
// =============================================================================

// Addr 返回服务器监听地址，启动后为实际地址
func (m *Manager) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.config.Addr
}

// IsRunning 检查服务器是否运行中
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed
}
