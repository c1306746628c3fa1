// =============================================================================
// 📦 streambridge 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/streambridge/stream"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Stream:    DefaultStreamConfig(),
		Source:    DefaultSourceConfig(),
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultStreamConfig 返回默认字节流配置
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ChunkSize:    stream.DefaultChunkSize,
		RequestBatch: 16,
	}
}

// DefaultSourceConfig 返回默认数据源配置（不限速）
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		RateLimitBPS:   0,
		RateBurst:      stream.DefaultChunkSize,
		ReadBufferSize: stream.DefaultChunkSize,
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:                 ":8080",
		ReadTimeout:          30 * time.Second,
		WriteTimeout:         30 * time.Second,
		IdleTimeout:          120 * time.Second,
		ShutdownTimeout:      15 * time.Second,
		MessageWriteTimeout:  10 * time.Second,
		MaxConcurrentStreams: 64,
		StreamQueueSize:      128,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "streambridge",
		Path:      "/metrics",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "streambridge",
		SampleRate:   0.1,
	}
}
