package stream

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/streambridge/types"
)

// DefaultChunkSize 默认字节块大小：16KiB 减去 32 字节。
// 16KiB 是 TLS 记录的最大数据长度，也是 HTTP/2 SETTINGS_MAX_FRAME_SIZE 的初始值，
// 预留 32 字节给 HTTP/1.1 chunked 编码或 HTTP/2 DATA 帧头，避免在 TLS 层被拆分。
const DefaultChunkSize = 16*1024 - 32

var (
	ErrNilSource        = errors.New("source must not be nil")
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
)

// Option 配置 Publisher
type Option func(*Publisher)

// WithChunkSize 设置单个字节块的最大长度
func WithChunkSize(size int) Option {
	return func(p *Publisher) {
		p.chunkSize = size
	}
}

// WithLogger 设置日志记录器，nil 表示不记录
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver 设置生命周期观察者
func WithObserver(o Observer) Option {
	return func(p *Publisher) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithStreamID 覆盖自动生成的流 ID
func WithStreamID(id string) Option {
	return func(p *Publisher) {
		if id != "" {
			p.id = id
		}
	}
}

// Publisher 是流入口：持有数据源与块大小，只允许一个订阅者。
type Publisher struct {
	src        Source
	chunkSize  int
	id         string
	logger     *zap.Logger
	observer   Observer
	subscribed atomic.Bool
}

// NewPublisher 创建 Publisher。数据源的所有权转移给 Publisher，
// 在终止（完成、失败或取消）时恰好关闭一次。
func NewPublisher(src Source, opts ...Option) (*Publisher, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	p := &Publisher{
		src:       src,
		chunkSize: DefaultChunkSize,
		id:        uuid.NewString(),
		logger:    zap.NewNop(),
		observer:  NopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, p.chunkSize)
	}
	p.logger = p.logger.With(zap.String("component", "stream_publisher"), zap.String("stream_id", p.id))
	return p, nil
}

// ID 返回流 ID
func (p *Publisher) ID() string {
	return p.id
}

// ChunkSize 返回配置的块大小
func (p *Publisher) ChunkSize() int {
	return p.chunkSize
}

// Subscribe 订阅数据流。
//
// 第一个订阅者收到 OnSubscribe；之后的订阅者收到空 Subscription，
// 随后收到 types.ErrDuplicateAttach，已有订阅不受影响。
// 如果订阅者在 OnSubscribe 中调用 Request，Subscribe 会同步阻塞直到需求满足或流终止。
func (p *Publisher) Subscribe(sub Subscriber) {
	if sub == nil {
		p.logger.Warn("ignoring nil subscriber")
		return
	}
	if !p.subscribed.CompareAndSwap(false, true) {
		p.rejectSubscriber(sub)
		return
	}

	s := newSubscription(p, sub)
	p.observer.StreamStarted(p.id)
	p.logger.Debug("subscriber attached", zap.Int("chunk_size", p.chunkSize))

	defer func() {
		if r := recover(); r != nil {
			p.logger.Info("subscriber panicked in OnSubscribe", zap.Any("panic", r))
			s.fail(types.NewConsumerCallbackError(p.id, "OnSubscribe", r))
		}
	}()
	sub.OnSubscribe(s)
}

func (p *Publisher) rejectSubscriber(sub Subscriber) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Info("ignoring panic from rejected subscriber", zap.Any("panic", r))
		}
	}()
	p.logger.Debug("rejecting duplicate subscriber")
	sub.OnSubscribe(emptySubscription{})
	sub.OnError(types.NewDuplicateAttachError(p.id))
}
