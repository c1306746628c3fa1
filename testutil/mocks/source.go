// MockSource 是阻塞数据源的可编排测试实现。
//
// 支持探测值脚本、单次读取上限、错误注入与阻塞读取场景。
package mocks

import (
	"errors"
	"io"
	"sync"
)

// ErrSourceClosed 数据源关闭后读取返回的错误
var ErrSourceClosed = errors.New("mock source closed")

// ProbeFunc 根据剩余字节数和已发生的读取次数决定 Available 的返回值
type ProbeFunc func(remaining, readCalls int) int

// ZeroProbe 模拟不支持探测的数据源
func ZeroProbe(int, int) int { return 0 }

// ExactProbe 模拟探测值精确的数据源
func ExactProbe(remaining, _ int) int { return remaining }

// --- MockSource 结构 ---

// MockSource 是 stream.Source 的模拟实现
type MockSource struct {
	mu sync.Mutex

	data []byte
	pos  int

	// 行为控制
	probe       ProbeFunc
	maxRead     int
	readErrAt   int
	readErr     error
	availErr    error
	closeErr    error
	eofWithData bool
	blocking    bool

	// 调用记录
	readCalls  int
	availCalls int
	closeCalls int

	closed      chan struct{}
	blocked     chan struct{}
	blockedOnce sync.Once
}

// --- 构造函数和 Builder 方法 ---

// NewMockSource 创建包含 data 的 MockSource，默认探测值精确
func NewMockSource(data []byte) *MockSource {
	return &MockSource{
		data:    data,
		probe:   ExactProbe,
		closed:  make(chan struct{}),
		blocked: make(chan struct{}),
	}
}

// WithAvailable 设置探测脚本
func (m *MockSource) WithAvailable(probe ProbeFunc) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probe = probe
	return m
}

// WithMaxRead 限制单次 Read 返回的最大字节数
func (m *MockSource) WithMaxRead(n int) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxRead = n
	return m
}

// WithReadErrorAt 第 call 次（从 1 开始）Read 返回 err
func (m *MockSource) WithReadErrorAt(call int, err error) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrAt = call
	m.readErr = err
	return m
}

// WithAvailableError 使 Available 返回错误
func (m *MockSource) WithAvailableError(err error) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availErr = err
	return m
}

// WithCloseError 使 Close 返回错误
func (m *MockSource) WithCloseError(err error) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeErr = err
	return m
}

// WithEOFWithData 读到最后一批数据时同时返回 io.EOF
func (m *MockSource) WithEOFWithData() *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eofWithData = true
	return m
}

// WithBlockingReads 数据耗尽后 Read 一直阻塞到 Close
func (m *MockSource) WithBlockingReads() *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocking = true
	return m
}

// --- stream.Source 实现 ---

func (m *MockSource) Read(p []byte) (int, error) {
	m.mu.Lock()
	m.readCalls++
	if m.isClosed() {
		m.mu.Unlock()
		return 0, ErrSourceClosed
	}
	if m.readErrAt > 0 && m.readCalls == m.readErrAt {
		m.mu.Unlock()
		return 0, m.readErr
	}
	if m.pos >= len(m.data) {
		if m.blocking {
			m.mu.Unlock()
			m.blockedOnce.Do(func() { close(m.blocked) })
			<-m.closed
			return 0, ErrSourceClosed
		}
		m.mu.Unlock()
		return 0, io.EOF
	}
	n := len(p)
	if m.maxRead > 0 && n > m.maxRead {
		n = m.maxRead
	}
	n = copy(p[:n], m.data[m.pos:])
	m.pos += n
	drained := m.pos >= len(m.data)
	eofWithData := m.eofWithData && !m.blocking
	m.mu.Unlock()

	if drained && eofWithData {
		return n, io.EOF
	}
	return n, nil
}

func (m *MockSource) Available() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availCalls++
	if m.availErr != nil {
		return 0, m.availErr
	}
	return m.probe(len(m.data)-m.pos, m.readCalls), nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	if !m.isClosed() {
		close(m.closed)
	}
	return m.closeErr
}

func (m *MockSource) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// --- 调用记录 ---

// ReadCalls 返回 Read 调用次数
func (m *MockSource) ReadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCalls
}

// AvailableCalls 返回 Available 调用次数
func (m *MockSource) AvailableCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availCalls
}

// CloseCalls 返回 Close 调用次数
func (m *MockSource) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// Closed 在 Close 被调用后关闭
func (m *MockSource) Closed() <-chan struct{} {
	return m.closed
}

// Blocked 在第一次阻塞读取开始时关闭
func (m *MockSource) Blocked() <-chan struct{} {
	return m.blocked
}
