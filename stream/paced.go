package stream

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// PacedSource 按字节速率限制读取，模拟或约束慢速生产者。
// 单次 Read 最多读取 limiter.Burst() 字节，读完后等待相应的令牌。
type PacedSource struct {
	ctx     context.Context
	src     Source
	limiter *rate.Limiter
}

// NewPacedSource 创建限速数据源，ctx 取消后 Read 返回错误
func NewPacedSource(ctx context.Context, src Source, limiter *rate.Limiter) *PacedSource {
	return &PacedSource{ctx: ctx, src: src, limiter: limiter}
}

func (s *PacedSource) Read(p []byte) (int, error) {
	if burst := s.limiter.Burst(); burst > 0 && len(p) > burst && s.limiter.Limit() != rate.Inf {
		p = p[:burst]
	}
	n, err := s.src.Read(p)
	if n > 0 {
		if waitErr := s.limiter.WaitN(s.ctx, n); waitErr != nil {
			return n, fmt.Errorf("paced source: %w", waitErr)
		}
	}
	return n, err
}

func (s *PacedSource) Available() (int, error) {
	return s.src.Available()
}

func (s *PacedSource) Close() error {
	return s.src.Close()
}
