// =============================================================================
// streambridge 主入口
// =============================================================================
// 使用方法:
//
//	streambridge pipe --in data.bin > out.bin           # 文件经字节流写到标准输出
//	cat data.bin | streambridge pipe --chunk-size 4096  # 读取标准输入
//	streambridge serve --file data.bin                  # WebSocket 推送文件
//	streambridge serve --config streambridge.yaml --file data.bin
//	streambridge version                                # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/streambridge/config"
	"github.com/BaSui01/streambridge/internal/telemetry"
	"github.com/BaSui01/streambridge/sink"
	"github.com/BaSui01/streambridge/stream"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "pipe":
		err = runPipe(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "streambridge %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// loadConfig 加载并验证配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 🔁 pipe 命令
// =============================================================================

func runPipe(args []string) error {
	fs := flag.NewFlagSet("pipe", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	in := fs.String("in", "-", "Input file, - for stdin")
	chunkSize := fs.Int("chunk-size", 0, "Maximum chunk size in bytes (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *chunkSize > 0 {
		cfg.Stream.ChunkSize = *chunkSize
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	src, err := openInput(*in, cfg.Source.ReadBufferSize)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	written, err := pipe(ctx, cfg, src, os.Stdout, logger)
	logger.Info("pipe finished",
		zap.String("input", *in),
		zap.Int64("bytes", written),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return err
}

// openInput 打开输入：- 表示标准输入，其他为文件路径
func openInput(path string, bufSize int) (stream.Source, error) {
	if path == "" || path == "-" {
		// 标准输入为管道或终端时 FIONREAD 可用，为普通文件重定向时同样可用
		return stream.NewFileSource(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.Mode().IsRegular() || info.Mode()&os.ModeNamedPipe != 0 {
		return stream.NewFileSource(f), nil
	}
	return stream.NewReaderSourceSize(f, bufSize), nil
}

// pipe 把 src 经 Publisher 写入 w，ctx 取消时取消订阅
func pipe(ctx context.Context, cfg *config.Config, src stream.Source, w io.Writer, logger *zap.Logger) (int64, error) {
	src = pacedSource(ctx, src, cfg.Source)
	pub, err := stream.NewPublisher(src,
		stream.WithChunkSize(cfg.Stream.ChunkSize),
		stream.WithLogger(logger),
	)
	if err != nil {
		_ = src.Close()
		return 0, err
	}

	ws := sink.NewWriterSubscriber(w, logger)
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		pub.Subscribe(ws)
		return ws.Wait()
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			ws.Cancel()
		case <-done:
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, sink.ErrCancelled) && ctx.Err() != nil {
		err = fmt.Errorf("interrupted: %w", context.Cause(ctx))
	}
	return ws.Written(), err
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	file := fs.String("file", "", "File streamed to every websocket client")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("--file is required")
	}
	if _, err := os.Stat(*file); err != nil {
		return fmt.Errorf("stream file: %w", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting streambridge",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	// Initialize OpenTelemetry
	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		providers = &telemetry.Providers{}
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	srv, err := NewServer(cfg, *file, logger, providers, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = srv.Run(ctx)
	logger.Info("streambridge stopped", zap.Error(err))
	return err
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "streambridge %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `streambridge - blocking byte source to demand-driven chunk stream

Usage:
  streambridge <command> [options]

Commands:
  pipe      Stream a file or stdin to stdout
  serve     Stream a file to websocket clients
  version   Show version information
  help      Show this help message

Options for 'pipe':
  --config <path>      Path to configuration file (YAML)
  --in <path|->        Input file, - for stdin (default -)
  --chunk-size <n>     Maximum chunk size in bytes

Options for 'serve':
  --config <path>      Path to configuration file (YAML)
  --file <path>        File streamed to every client (required)

Examples:
  streambridge pipe --in data.bin > copy.bin
  streambridge serve --file data.bin
  STREAMBRIDGE_SOURCE_RATE_LIMIT_BPS=65536 streambridge serve --file data.bin
  streambridge version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		// stdout 留给 pipe 的数据
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
