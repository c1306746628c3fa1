package stream

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/BaSui01/streambridge/types"
)

// 连续空读（0, nil）的上限，与 bufio 一致
const maxConsecutiveEmptyReads = 100

// noByte 表示探测读取尚未取得字节
const noByte = -1

// subscription 是需求引擎：持有读取循环、需求计数、写游标与终止标记。
//
// 需求计数和 draining 由 mu 保护；mu 从不跨越 Read 或订阅者回调持有。
// terminated 是原子终止标记，一旦置位不再改变，Cancel 可以从任意 goroutine 调用，
// 读取循环在下一次迭代前观察到它。writeIdx、sawEOF 只由持有 draining 的 goroutine 修改。
type subscription struct {
	src       Source
	sub       Subscriber
	chunkSize int
	id        string
	logger    *zap.Logger
	observer  Observer

	mu        sync.Mutex
	requested int64
	draining  bool

	terminated atomic.Bool
	closed     closeOnce

	writeIdx int
	sawEOF   bool
	scratch  [1]byte
}

func newSubscription(p *Publisher, sub Subscriber) *subscription {
	return &subscription{
		src:       p.src,
		sub:       sub,
		chunkSize: p.chunkSize,
		id:        p.id,
		logger:    p.logger,
		observer:  p.observer,
	}
}

// Request 增加需求。如果当前没有读取循环在运行，则在本 goroutine 上同步驱动读取，
// 直到需求耗尽或流终止；否则只累加需求后立即返回。
func (s *subscription) Request(n int64) {
	if s.terminated.Load() {
		return
	}
	if !IsRequestNValid(n) {
		s.fail(types.NewInvalidDemandError(s.id, n))
		return
	}
	s.observer.DemandRequested(s.id, n)

	s.mu.Lock()
	s.requested = AddWithOverflowProtection(s.requested, n)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	s.drain()
}

// Cancel 置位终止标记并关闭数据源，不投递任何信号
func (s *subscription) Cancel() {
	if !s.trySetTerminated() {
		return
	}
	if err := s.closeSource(); err != nil {
		s.logger.Debug("ignoring source close error after cancel", zap.Error(err))
	}
	s.observer.StreamTerminated(s.id, OutcomeCancelled, nil)
}

// drain 是显式的蹦床循环：只有持有 draining 的 goroutine 会进入这里
func (s *subscription) drain() {
	for {
		s.mu.Lock()
		if s.requested == 0 || s.terminated.Load() {
			s.draining = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		if !s.safeReadAndEmit() {
			return
		}
	}
}

// safeReadAndEmit 把数据源的 panic 转换为 SourceReadError，保证数据源被关闭且终止信号送达
func (s *subscription) safeReadAndEmit() (more bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("source panicked, failing stream", zap.Any("panic", r))
			s.fail(types.NewSourceReadError(s.id, fmt.Errorf("source panicked: %v", r)))
			more = false
		}
	}()
	return s.readAndEmit()
}

// readAndEmit 读取并推送一个字节块，流终止时返回 false
func (s *subscription) readAndEmit() bool {
	readByte := noByte
	// Available 不完全可信，但可以减少阻塞读取
	available, err := s.src.Available()
	if err != nil {
		s.fail(types.NewSourceReadError(s.id, err))
		return false
	}
	if available <= 0 {
		// 0 可能表示 EOF，也可能只是暂时没有数据。先读一个字节区分两者，避免无谓的分配
		n, err := s.read(s.scratch[:])
		if errors.Is(err, io.EOF) {
			s.complete()
			return false
		}
		if err != nil {
			s.fail(types.NewSourceReadError(s.id, err))
			return false
		}
		if n == 1 {
			readByte = int(s.scratch[0])
		}
		// 单字节读取可能触发了预读
		available, err = s.src.Available()
		if err != nil {
			s.fail(types.NewSourceReadError(s.id, err))
			return false
		}
		if available <= 0 {
			// 数据源不支持探测或不做预读，按块大小尝试读取
			available = s.chunkSize
		}
	}

	eof, err := s.readAvailableAndEmit(available, readByte)
	if err != nil {
		s.fail(types.NewSourceReadError(s.id, err))
		return false
	}
	if s.terminated.Load() {
		return false
	}
	if eof {
		s.complete()
		return false
	}
	return true
}

func (s *subscription) readAvailableAndEmit(available, readByte int) (eof bool, err error) {
	var buf []byte
	if readByte != noByte {
		if available < s.chunkSize {
			buf = make([]byte, available+1)
		} else {
			buf = make([]byte, s.chunkSize)
		}
		buf[s.writeIdx] = byte(readByte)
		s.writeIdx++
	} else {
		buf = make([]byte, min(available, s.chunkSize))
	}

	eof, err = s.fillBuffer(buf, available)
	if err != nil {
		return false, err
	}
	s.emit(buf)
	return eof, nil
}

// fillBuffer 在估计可读字节数内填充缓冲区，len 大于 available 时可能阻塞
func (s *subscription) fillBuffer(buf []byte, available int) (eof bool, err error) {
	for s.writeIdx != len(buf) && available > 0 {
		n, err := s.read(buf[s.writeIdx:min(len(buf), s.writeIdx+available)])
		s.writeIdx += n
		available -= n
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

// emit 推送已写入的字节，之后不再持有该缓冲区
func (s *subscription) emit(buf []byte) {
	if s.writeIdx < 1 {
		return
	}
	chunk := buf
	if s.writeIdx < len(buf) {
		// 最后一块通常比估计值短，复制一份避免下游持有多余容量
		chunk = make([]byte, s.writeIdx)
		copy(chunk, buf[:s.writeIdx])
	}
	s.writeIdx = 0

	s.mu.Lock()
	s.requested--
	s.mu.Unlock()

	if s.terminated.Load() {
		return
	}
	s.observer.ChunkEmitted(s.id, len(chunk))
	if r := s.safeOnNext(chunk); r != nil {
		s.fail(types.NewConsumerCallbackError(s.id, "OnNext", r))
	}
}

func (s *subscription) safeOnNext(chunk []byte) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	s.sub.OnNext(chunk)
	return nil
}

// read 包装 Source.Read：把 (n>0, io.EOF) 拆成 (n, nil) 和随后的 (0, io.EOF)，
// 并把持续的空读转换为 io.ErrNoProgress
func (s *subscription) read(p []byte) (int, error) {
	if s.sawEOF {
		return 0, io.EOF
	}
	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := s.src.Read(p)
		if n < 0 || n > len(p) {
			return 0, errors.New("source returned invalid read count")
		}
		if errors.Is(err, io.EOF) {
			if n > 0 {
				s.sawEOF = true
				return n, nil
			}
			return 0, io.EOF
		}
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, io.ErrNoProgress
}

// =============================================================================
// 终止信号
// =============================================================================

func (s *subscription) complete() {
	if err := s.closeSource(); err != nil {
		// 关闭失败只有在尚未发送终止信号时才作为失败上报
		s.deliverError(types.NewSourceCloseError(s.id, err))
		return
	}
	if !s.trySetTerminated() {
		return
	}
	s.observer.StreamTerminated(s.id, OutcomeCompleted, nil)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Info("ignoring panic from OnComplete", zap.Any("panic", r))
		}
	}()
	s.sub.OnComplete()
}

// fail 先关闭数据源（忽略关闭错误），再投递失败信号
func (s *subscription) fail(cause *types.Error) {
	if err := s.closeSource(); err != nil {
		s.logger.Debug("ignoring source close error while failing", zap.Error(err))
	}
	s.deliverError(cause)
}

func (s *subscription) deliverError(cause *types.Error) {
	if !s.trySetTerminated() {
		s.logger.Debug("discarding error after terminal signal", zap.Error(cause))
		return
	}
	s.observer.StreamTerminated(s.id, OutcomeFailed, cause)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Info("ignoring panic from OnError", zap.Any("panic", r), zap.Error(cause))
		}
	}()
	s.sub.OnError(cause)
}

func (s *subscription) closeSource() error {
	return s.closed.close(s.src.Close)
}

func (s *subscription) trySetTerminated() bool {
	return s.terminated.CompareAndSwap(false, true)
}
