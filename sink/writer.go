package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/streambridge/stream"
)

// ErrCancelled 由 Cancel 主动结束写入时，Wait 返回该错误
var ErrCancelled = errors.New("stream cancelled")

// WriterSubscriber 把字节块依次写入 io.Writer。
// 每次只请求一个字节块，写完后在 OnNext 内请求下一个；写入失败时取消订阅。
type WriterSubscriber struct {
	w      io.Writer
	logger *zap.Logger

	mu        sync.Mutex
	sub       stream.Subscription
	cancelled bool
	written   int64
	err       error

	done chan struct{}
	once sync.Once
}

// NewWriterSubscriber 创建写入订阅者
func NewWriterSubscriber(w io.Writer, logger *zap.Logger) *WriterSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WriterSubscriber{
		w:      w,
		logger: logger.With(zap.String("component", "writer_sink")),
		done:   make(chan struct{}),
	}
}

func (ws *WriterSubscriber) OnSubscribe(s stream.Subscription) {
	ws.mu.Lock()
	ws.sub = s
	cancelled := ws.cancelled
	ws.mu.Unlock()
	if cancelled {
		s.Cancel()
		return
	}
	s.Request(1)
}

func (ws *WriterSubscriber) OnNext(chunk []byte) {
	n, err := ws.w.Write(chunk)

	ws.mu.Lock()
	ws.written += int64(n)
	s := ws.sub
	if err != nil {
		ws.err = fmt.Errorf("write chunk: %w", err)
	}
	ws.mu.Unlock()

	if err != nil {
		ws.logger.Warn("write failed, cancelling stream", zap.Error(err))
		s.Cancel()
		ws.finish()
		return
	}
	s.Request(1)
}

func (ws *WriterSubscriber) OnComplete() {
	ws.finish()
}

func (ws *WriterSubscriber) OnError(err error) {
	ws.mu.Lock()
	if ws.err == nil {
		ws.err = err
	}
	ws.mu.Unlock()
	ws.finish()
}

// Cancel 取消订阅并结束等待，Err 返回 ErrCancelled。可在任意 goroutine 调用。
func (ws *WriterSubscriber) Cancel() {
	ws.mu.Lock()
	ws.cancelled = true
	s := ws.sub
	if ws.err == nil {
		ws.err = ErrCancelled
	}
	ws.mu.Unlock()
	if s != nil {
		s.Cancel()
	}
	ws.finish()
}

func (ws *WriterSubscriber) finish() {
	ws.once.Do(func() { close(ws.done) })
}

// Written 返回已写入的字节数
func (ws *WriterSubscriber) Written() int64 {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.written
}

// Err 返回写入错误或流错误
func (ws *WriterSubscriber) Err() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.err
}

// Done 在流终止或写入失败后关闭
func (ws *WriterSubscriber) Done() <-chan struct{} {
	return ws.done
}

// Wait 阻塞到流终止，返回 Err()
func (ws *WriterSubscriber) Wait() error {
	<-ws.done
	return ws.Err()
}

// Copy 把 p 的全部数据写入 w，返回写入的字节数
func Copy(w io.Writer, p *stream.Publisher) (int64, error) {
	ws := NewWriterSubscriber(w, nil)
	p.Subscribe(ws)
	err := ws.Wait()
	return ws.Written(), err
}
