package stream

//go:generate go run github.com/golang/mock/mockgen -package=stream -destination=mock_source_test.go github.com/BaSui01/streambridge/stream Source

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/streambridge/types"
)

func (s *subscription) pending() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

func TestSubscription_DemandSaturates(t *testing.T) {
	p, err := NewPublisher(NewBytesSource([]byte("abcdef")), WithChunkSize(2))
	require.NoError(t, err)

	var (
		inner    *subscription
		observed int64
		chunks   int
	)
	p.Subscribe(&SubscriberFuncs{
		SubscribeFunc: func(s Subscription) {
			inner = s.(*subscription)
			s.Request(1)
		},
		NextFunc: func([]byte) {
			chunks++
			if chunks == 1 {
				inner.Request(RequestAll)
				inner.Request(RequestAll)
				observed = inner.pending()
				inner.Cancel()
			}
		},
	})

	assert.Equal(t, int64(math.MaxInt64), observed)
	assert.Equal(t, 1, chunks)
}

func TestSubscription_DemandDecrementsPerChunk(t *testing.T) {
	p, err := NewPublisher(NewBytesSource([]byte("abcdef")), WithChunkSize(2))
	require.NoError(t, err)

	var inner *subscription
	p.Subscribe(&SubscriberFuncs{
		SubscribeFunc: func(s Subscription) {
			inner = s.(*subscription)
			s.Request(5)
		},
	})

	// 3 块数据后还剩 2，探测到 EOF 时流已终止
	assert.Equal(t, int64(2), inner.pending())
	assert.True(t, inner.terminated.Load())
}

// =============================================================================
// 🧪 gomock：数据源交互顺序
// =============================================================================

func TestSubscription_ProbeThenSingleByteRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)

	gomock.InOrder(
		src.EXPECT().Available().Return(0, nil),
		src.EXPECT().Read(gomock.Len(1)).DoAndReturn(func(p []byte) (int, error) {
			p[0] = 'x'
			return 1, nil
		}),
		src.EXPECT().Available().Return(2, nil),
		src.EXPECT().Read(gomock.Len(2)).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, "yz"), nil
		}),
		src.EXPECT().Available().Return(0, nil),
		src.EXPECT().Read(gomock.Len(1)).Return(0, io.EOF),
		src.EXPECT().Close().Return(nil).Times(1),
	)

	p, err := NewPublisher(src, WithChunkSize(8))
	require.NoError(t, err)

	var got [][]byte
	completed := 0
	p.Subscribe(&SubscriberFuncs{
		SubscribeFunc: func(s Subscription) { s.Request(RequestAll) },
		NextFunc:      func(b []byte) { got = append(got, b) },
		CompleteFunc:  func() { completed++ },
	})

	require.Len(t, got, 1)
	assert.Equal(t, "xyz", string(got[0]))
	assert.Equal(t, 1, completed)
}

func TestSubscription_CloseOnceOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Close().Return(errors.New("already gone")).Times(1)

	p, err := NewPublisher(src)
	require.NoError(t, err)

	terminals := 0
	var sub Subscription
	p.Subscribe(&SubscriberFuncs{
		SubscribeFunc: func(s Subscription) { sub = s },
		CompleteFunc:  func() { terminals++ },
		ErrorFunc:     func(error) { terminals++ },
	})

	sub.Cancel()
	sub.Cancel()
	sub.Request(1)
	assert.Equal(t, 0, terminals)
}

func TestSubscription_CloseOnceOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	readErr := errors.New("broken pipe")
	gomock.InOrder(
		src.EXPECT().Available().Return(4, nil),
		src.EXPECT().Read(gomock.Any()).Return(0, readErr),
		src.EXPECT().Close().Return(errors.New("close failed")).Times(1),
	)

	p, err := NewPublisher(src, WithChunkSize(4))
	require.NoError(t, err)

	var errs []error
	var sub Subscription
	p.Subscribe(&SubscriberFuncs{
		SubscribeFunc: func(s Subscription) {
			sub = s
			s.Request(1)
		},
		ErrorFunc: func(err error) { errs = append(errs, err) },
	})
	sub.Cancel()

	require.Len(t, errs, 1)
	assert.Equal(t, types.ErrSourceRead, types.GetErrorCode(errs[0]))
	assert.ErrorIs(t, errs[0], readErr)
}
