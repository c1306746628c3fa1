package stream

// Subscription 是订阅者控制需求的句柄。
//
// Request 可能在调用方 goroutine 上阻塞读取数据源。
// 在 OnNext 内部调用 Request 只会累加需求，由外层读取循环继续推送。
type Subscription interface {
	// Request 增加 n 个字节块的需求，n 必须大于 0
	Request(n int64)
	// Cancel 停止推送并关闭数据源，不会投递终止信号，可重复调用
	Cancel()
}

// Subscriber 接收字节块和恰好一次的终止信号。
//
// OnNext 收到的切片归订阅者所有，Publisher 之后不会再读写它。
type Subscriber interface {
	OnSubscribe(s Subscription)
	OnNext(chunk []byte)
	OnComplete()
	OnError(err error)
}

// SubscriberFuncs 用函数字段实现 Subscriber，未设置的回调为空操作。
type SubscriberFuncs struct {
	SubscribeFunc func(s Subscription)
	NextFunc      func(chunk []byte)
	CompleteFunc  func()
	ErrorFunc     func(err error)
}

func (f *SubscriberFuncs) OnSubscribe(s Subscription) {
	if f.SubscribeFunc != nil {
		f.SubscribeFunc(s)
	}
}

func (f *SubscriberFuncs) OnNext(chunk []byte) {
	if f.NextFunc != nil {
		f.NextFunc(chunk)
	}
}

func (f *SubscriberFuncs) OnComplete() {
	if f.CompleteFunc != nil {
		f.CompleteFunc()
	}
}

func (f *SubscriberFuncs) OnError(err error) {
	if f.ErrorFunc != nil {
		f.ErrorFunc(err)
	}
}

// emptySubscription 交给被拒绝的订阅者，所有调用均为空操作
type emptySubscription struct{}

func (emptySubscription) Request(int64) {}
func (emptySubscription) Cancel() {}
