package stream

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// Source 阻塞式拉取数据源。
//
// Read 遵循 io.Reader 语义，数据耗尽时返回 io.EOF，可能阻塞。
// Available 返回无需阻塞即可读取的估计字节数，0 表示"未知或暂无数据"，
// 不代表数据源已结束。Close 必须幂等。
type Source interface {
	io.ReadCloser
	Available() (int, error)
}

// closeOnce 保证底层资源只关闭一次，后续调用返回首次的结果
type closeOnce struct {
	once sync.Once
	err  error
}

func (c *closeOnce) close(fn func() error) error {
	c.once.Do(func() {
		if fn != nil {
			c.err = fn()
		}
	})
	return c.err
}

// =============================================================================
// ReaderSource
// =============================================================================

// ReaderSource 将任意 io.Reader 适配为 Source，探测值为 bufio 已缓冲的字节数。
type ReaderSource struct {
	r      *bufio.Reader
	closer io.Closer
	closed closeOnce
}

// NewReaderSource 创建 ReaderSource，如果 r 实现了 io.Closer，Close 会关闭它
func NewReaderSource(r io.Reader) *ReaderSource {
	return NewReaderSourceSize(r, DefaultChunkSize)
}

// NewReaderSourceSize 使用指定的预读缓冲大小创建 ReaderSource
func NewReaderSourceSize(r io.Reader, size int) *ReaderSource {
	s := &ReaderSource{r: bufio.NewReaderSize(r, size)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *ReaderSource) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Available 返回预读缓冲中的字节数
func (s *ReaderSource) Available() (int, error) {
	return s.r.Buffered(), nil
}

func (s *ReaderSource) Close() error {
	if s.closer == nil {
		return s.closed.close(nil)
	}
	return s.closed.close(s.closer.Close)
}

// =============================================================================
// BytesSource
// =============================================================================

// BytesSource 内存数据源，探测值精确等于剩余字节数
type BytesSource struct {
	r *bytes.Reader
}

// NewBytesSource 创建内存数据源，b 不会被修改
func NewBytesSource(b []byte) *BytesSource {
	return &BytesSource{r: bytes.NewReader(b)}
}

func (s *BytesSource) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *BytesSource) Available() (int, error) {
	return s.r.Len(), nil
}

func (s *BytesSource) Close() error {
	return nil
}
