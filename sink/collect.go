package sink

import (
	"sync"

	"github.com/BaSui01/streambridge/stream"
)

// DefaultBatch Collector 默认每批请求的字节块数
const DefaultBatch int64 = 16

// Collector 按批次请求字节块并全部保存在内存中。
// 一批全部到达后，在 OnNext 内请求下一批。
type Collector struct {
	batch int64

	mu          sync.Mutex
	sub         stream.Subscription
	chunks      [][]byte
	size        int
	outstanding int64
	err         error

	done chan struct{}
	once sync.Once
}

// NewCollector 创建 Collector，batch <= 0 表示一次请求全部
func NewCollector(batch int64) *Collector {
	if batch <= 0 {
		batch = stream.RequestAll
	}
	return &Collector{batch: batch, done: make(chan struct{})}
}

func (c *Collector) OnSubscribe(s stream.Subscription) {
	c.mu.Lock()
	c.sub = s
	c.outstanding = c.batch
	c.mu.Unlock()
	s.Request(c.batch)
}

func (c *Collector) OnNext(chunk []byte) {
	c.mu.Lock()
	c.chunks = append(c.chunks, chunk)
	c.size += len(chunk)
	c.outstanding--
	refill := c.outstanding == 0
	if refill {
		c.outstanding = c.batch
	}
	s := c.sub
	c.mu.Unlock()

	if refill {
		s.Request(c.batch)
	}
}

func (c *Collector) OnComplete() {
	c.once.Do(func() { close(c.done) })
}

func (c *Collector) OnError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// Chunks 返回已收到的字节块
func (c *Collector) Chunks() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.chunks))
	copy(out, c.chunks)
	return out
}

// Bytes 返回拼接后的全部数据
func (c *Collector) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, 0, c.size)
	for _, chunk := range c.chunks {
		out = append(out, chunk...)
	}
	return out
}

// Err 返回收到的错误，完成或尚未终止时为 nil
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done 在收到终止信号后关闭
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// Collect 订阅 p 并返回全部数据。驱动读取发生在调用方 goroutine 上。
func Collect(p *stream.Publisher) ([]byte, error) {
	c := NewCollector(DefaultBatch)
	p.Subscribe(c)
	<-c.Done()
	return c.Bytes(), c.Err()
}
