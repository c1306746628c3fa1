package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/streambridge/config"
	"github.com/BaSui01/streambridge/stream"
	"github.com/BaSui01/streambridge/testutil"
	"github.com/BaSui01/streambridge/testutil/mocks"
)

func TestPipe_CopiesSource(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Stream.ChunkSize = 512
	data := testutil.RandomBytes(20_000, 31)

	var out bytes.Buffer
	n, err := pipe(context.Background(), cfg, stream.NewBytesSource(data), &out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, out.Bytes())
}

func TestPipe_Paced(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Stream.ChunkSize = 100
	cfg.Source.RateLimitBPS = 1000
	cfg.Source.RateBurst = 100
	data := testutil.RandomBytes(300, 32)

	var out bytes.Buffer
	start := time.Now()
	_, err := pipe(context.Background(), cfg, stream.NewBytesSource(data), &out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, data, out.Bytes())
	// 初始令牌桶覆盖 100 字节，剩余 200 字节约 200ms
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestPipe_InterruptCancelsStream(t *testing.T) {
	cfg := config.DefaultConfig()
	src := mocks.NewMockSource([]byte("partial")).WithBlockingReads()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-src.Blocked()
		cancel()
	}()

	var out bytes.Buffer
	n, err := pipe(ctx, cfg, src, &out, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interrupted")
	assert.Equal(t, int64(len("partial")), n)
	assert.Equal(t, 1, src.CloseCalls())
}

func TestPipe_InvalidChunkSize(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Stream.ChunkSize = 0
	src := mocks.NewMockSource([]byte("abc"))

	_, err := pipe(context.Background(), cfg, src, &bytes.Buffer{}, zap.NewNop())
	assert.ErrorIs(t, err, stream.ErrInvalidChunkSize)
	assert.Equal(t, 1, src.CloseCalls())
}

func TestOpenInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	src, err := openInput(path, 64)
	require.NoError(t, err)
	defer src.Close()
	assert.IsType(t, &stream.FileSource{}, src)

	_, err = openInput(filepath.Join(t.TempDir(), "missing"), 64)
	assert.Error(t, err)

	stdin, err := openInput("-", 64)
	require.NoError(t, err)
	assert.IsType(t, &stream.FileSource{}, stdin)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, stream.DefaultChunkSize, cfg.Stream.ChunkSize)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream:\n  chunk_size: -1\n"), 0o600))
	_, err = loadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream.chunk_size")
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := initLogger(config.LogConfig{Level: tt.level, Format: "json"})
			require.NotNil(t, logger)
			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
		})
	}

	console := initLogger(config.LogConfig{Level: "info", Format: "console"})
	assert.NotNil(t, console)
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "streambridge "+Version)
	assert.Contains(t, buf.String(), "Git Commit")
}

func TestRunServe_RequiresFile(t *testing.T) {
	err := runServe(nil)
	assert.ErrorContains(t, err, "--file")

	err = runServe([]string{"--file", filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
