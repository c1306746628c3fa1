package sink

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/streambridge/stream"
)

// DefaultWriteTimeout 单条 WebSocket 消息的默认写超时
const DefaultWriteTimeout = 10 * time.Second

// 关闭帧原因最长 123 字节
const maxCloseReason = 123

// WebSocketSubscriber 把每个字节块作为一条二进制消息写入 WebSocket 连接。
// 流完成时以 StatusNormalClosure 关闭连接，失败时以 StatusInternalError 关闭。
// 默认每次请求一个字节块，WithBatch 可改为按批请求。
type WebSocketSubscriber struct {
	ctx          context.Context
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *zap.Logger
	batch        int64
	outstanding  int64

	mu        sync.Mutex
	sub       stream.Subscription
	cancelled bool
	sent      int64
	err       error

	done chan struct{}
	once sync.Once
}

// NewWebSocketSubscriber 创建 WebSocket 订阅者。ctx 取消后写入失败并取消订阅。
func NewWebSocketSubscriber(ctx context.Context, conn *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger) *WebSocketSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &WebSocketSubscriber{
		ctx:          ctx,
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger.With(zap.String("component", "websocket_sink")),
		batch:        1,
		done:         make(chan struct{}),
	}
}

// WithBatch 设置每批请求的字节块数，n <= 0 表示一次请求全部。须在订阅前调用。
func (w *WebSocketSubscriber) WithBatch(n int64) *WebSocketSubscriber {
	if n <= 0 {
		n = stream.RequestAll
	}
	w.batch = n
	return w
}

func (w *WebSocketSubscriber) OnSubscribe(s stream.Subscription) {
	w.mu.Lock()
	w.sub = s
	cancelled := w.cancelled
	w.mu.Unlock()
	if cancelled {
		s.Cancel()
		return
	}
	w.outstanding = w.batch
	s.Request(w.batch)
}

// Cancel 取消订阅并以 StatusGoingAway 关闭连接，可在任意 goroutine 调用。
// 客户端断开或服务关闭时由上层调用，用于中断阻塞在数据源上的读取。
func (w *WebSocketSubscriber) Cancel() {
	w.mu.Lock()
	w.cancelled = true
	s := w.sub
	w.mu.Unlock()
	if s != nil {
		s.Cancel()
	}
	w.closeConn(websocket.StatusGoingAway, "cancelled")
}

func (w *WebSocketSubscriber) OnNext(chunk []byte) {
	ctx, cancel := context.WithTimeout(w.ctx, w.writeTimeout)
	err := w.conn.Write(ctx, websocket.MessageBinary, chunk)
	cancel()

	w.mu.Lock()
	s := w.sub
	if err == nil {
		w.sent += int64(len(chunk))
	} else {
		w.err = fmt.Errorf("websocket write: %w", err)
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Debug("websocket write failed, cancelling stream", zap.Error(err))
		s.Cancel()
		w.closeConn(websocket.StatusInternalError, "write failed")
		return
	}
	// OnNext 串行调用，outstanding 只在这里和 OnSubscribe 中访问
	if w.outstanding != stream.RequestAll {
		w.outstanding--
		if w.outstanding == 0 {
			w.outstanding = w.batch
			s.Request(w.batch)
		}
	}
}

func (w *WebSocketSubscriber) OnComplete() {
	w.closeConn(websocket.StatusNormalClosure, "stream complete")
}

func (w *WebSocketSubscriber) OnError(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
	w.closeConn(websocket.StatusInternalError, err.Error())
}

func (w *WebSocketSubscriber) closeConn(code websocket.StatusCode, reason string) {
	w.once.Do(func() {
		reason = truncateReason(reason)
		if err := w.conn.Close(code, reason); err != nil {
			w.logger.Debug("websocket close", zap.Error(err))
		}
		close(w.done)
	})
}

// truncateReason 截断到关闭帧允许的长度，并退回到完整字符的边界
func truncateReason(reason string) string {
	if len(reason) <= maxCloseReason {
		return reason
	}
	end := maxCloseReason
	for end > 0 && !utf8.RuneStart(reason[end]) {
		end--
	}
	return reason[:end]
}

// Sent 返回已成功发送的字节数
func (w *WebSocketSubscriber) Sent() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sent
}

// Err 返回写入错误或流错误
func (w *WebSocketSubscriber) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Done 在连接关闭后关闭
func (w *WebSocketSubscriber) Done() <-chan struct{} {
	return w.done
}
