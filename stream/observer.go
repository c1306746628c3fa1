package stream

// Outcome 描述流的终止方式
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Observer 接收流生命周期事件，用于指标和追踪。
// 回调在驱动流的 goroutine 上同步执行，实现必须快速返回且并发安全。
type Observer interface {
	StreamStarted(id string)
	DemandRequested(id string, n int64)
	ChunkEmitted(id string, size int)
	StreamTerminated(id string, outcome Outcome, err error)
}

// NopObserver 忽略所有事件
type NopObserver struct{}

func (NopObserver) StreamStarted(string) {}
func (NopObserver) DemandRequested(string, int64) {}
func (NopObserver) ChunkEmitted(string, int) {}
func (NopObserver) StreamTerminated(string, Outcome, error) {}

type multiObserver []Observer

// Observers 将事件依次分发给多个 Observer，nil 会被跳过
func Observers(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multiObserver) StreamStarted(id string) {
	for _, o := range m {
		o.StreamStarted(id)
	}
}

func (m multiObserver) DemandRequested(id string, n int64) {
	for _, o := range m {
		o.DemandRequested(id, n)
	}
}

func (m multiObserver) ChunkEmitted(id string, size int) {
	for _, o := range m {
		o.ChunkEmitted(id, size)
	}
}

func (m multiObserver) StreamTerminated(id string, outcome Outcome, err error) {
	for _, o := range m {
		o.StreamTerminated(id, outcome, err)
	}
}
