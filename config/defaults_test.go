package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, StreamConfig{}, cfg.Stream)
	assert.NotEqual(t, SourceConfig{}, cfg.Source)
	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, MetricsConfig{}, cfg.Metrics)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
	assert.NotEmpty(t, cfg.Log.Level)
}

// --- Individual Default*Config functions ---

func TestDefaultStreamConfig(t *testing.T) {
	cfg := DefaultStreamConfig()
	assert.Equal(t, 16352, cfg.ChunkSize)
	assert.Equal(t, int64(16), cfg.RequestBatch)
}

func TestDefaultSourceConfig(t *testing.T) {
	cfg := DefaultSourceConfig()
	assert.Zero(t, cfg.RateLimitBPS, "rate limiting is off by default")
	assert.Equal(t, 16352, cfg.RateBurst)
	assert.Equal(t, 16352, cfg.ReadBufferSize)
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.MessageWriteTimeout)
	assert.Equal(t, 64, cfg.MaxConcurrentStreams)
	assert.Equal(t, 128, cfg.StreamQueueSize)
	assert.False(t, cfg.TLSEnabled())
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
	assert.True(t, cfg.EnableCaller)
	assert.False(t, cfg.EnableStacktrace)
}

func TestDefaultMetricsConfig(t *testing.T) {
	cfg := DefaultMetricsConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "streambridge", cfg.Namespace)
	assert.Equal(t, "/metrics", cfg.Path)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, "streambridge", cfg.ServiceName)
	assert.Equal(t, 0.1, cfg.SampleRate)
}
