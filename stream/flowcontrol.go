package stream

import "math"

// RequestAll 表示"请求全部剩余数据"的需求值
const RequestAll int64 = math.MaxInt64

// IsRequestNValid 检查 Request(n) 的参数是否合法
func IsRequestNValid(n int64) bool {
	return n > 0
}

// AddWithOverflowProtection 对两个非负需求做饱和加法，溢出时钳制为 math.MaxInt64。
func AddWithOverflowProtection(x, y int64) int64 {
	if y > math.MaxInt64-x {
		return math.MaxInt64
	}
	return x + y
}
