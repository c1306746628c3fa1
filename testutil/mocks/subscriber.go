package mocks

import (
	"sync"

	"github.com/BaSui01/streambridge/stream"
)

// RecordingSubscriber 记录收到的全部信号，用于断言需求与终止语义
type RecordingSubscriber struct {
	mu sync.Mutex

	subscription stream.Subscription
	chunks       [][]byte
	completions  int
	errs         []error
	afterTerm    int

	initialRequest int64
	onNext         func(s stream.Subscription, chunk []byte)
	onSubscribe    func(s stream.Subscription)

	done     chan struct{}
	doneOnce sync.Once
}

// NewRecordingSubscriber 创建记录订阅者，默认不发起任何请求
func NewRecordingSubscriber() *RecordingSubscriber {
	return &RecordingSubscriber{done: make(chan struct{})}
}

// WithInitialRequest 在 OnSubscribe 中请求 n 个字节块
func (r *RecordingSubscriber) WithInitialRequest(n int64) *RecordingSubscriber {
	r.initialRequest = n
	return r
}

// WithOnNext 在记录字节块之后执行 fn
func (r *RecordingSubscriber) WithOnNext(fn func(s stream.Subscription, chunk []byte)) *RecordingSubscriber {
	r.onNext = fn
	return r
}

// WithOnSubscribe 在保存 Subscription 之后、初始请求之前执行 fn
func (r *RecordingSubscriber) WithOnSubscribe(fn func(s stream.Subscription)) *RecordingSubscriber {
	r.onSubscribe = fn
	return r
}

func (r *RecordingSubscriber) OnSubscribe(s stream.Subscription) {
	r.mu.Lock()
	r.subscription = s
	r.mu.Unlock()
	if r.onSubscribe != nil {
		r.onSubscribe(s)
	}
	if r.initialRequest != 0 {
		s.Request(r.initialRequest)
	}
}

func (r *RecordingSubscriber) OnNext(chunk []byte) {
	r.mu.Lock()
	if r.terminalsLocked() > 0 {
		r.afterTerm++
	}
	r.chunks = append(r.chunks, chunk)
	s := r.subscription
	r.mu.Unlock()
	if r.onNext != nil {
		r.onNext(s, chunk)
	}
}

func (r *RecordingSubscriber) OnComplete() {
	r.mu.Lock()
	r.completions++
	r.mu.Unlock()
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *RecordingSubscriber) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.doneOnce.Do(func() { close(r.done) })
}

// --- 查询方法 ---

// Subscription 返回收到的 Subscription
func (r *RecordingSubscriber) Subscription() stream.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscription
}

// Chunks 返回已收到字节块的副本
func (r *RecordingSubscriber) Chunks() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.chunks))
	copy(out, r.chunks)
	return out
}

// Completions 返回 OnComplete 调用次数
func (r *RecordingSubscriber) Completions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completions
}

// Errors 返回收到的错误
func (r *RecordingSubscriber) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// Terminals 返回终止信号总数
func (r *RecordingSubscriber) Terminals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminalsLocked()
}

// ChunksAfterTerminal 返回终止信号之后仍收到的字节块数
func (r *RecordingSubscriber) ChunksAfterTerminal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.afterTerm
}

// Done 在收到终止信号后关闭
func (r *RecordingSubscriber) Done() <-chan struct{} {
	return r.done
}

func (r *RecordingSubscriber) terminalsLocked() int {
	return r.completions + len(r.errs)
}
