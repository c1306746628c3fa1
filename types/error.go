package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the bridge.
type ErrorCode string

// Stream error codes
const (
	// ErrDuplicateAttach 同一个 Publisher 被第二个订阅者订阅
	ErrDuplicateAttach ErrorCode = "DUPLICATE_ATTACH"
	// ErrInvalidDemand Request(n) 的 n 非正数
	ErrInvalidDemand ErrorCode = "INVALID_DEMAND"
	// ErrSourceRead 数据源探测或读取失败
	ErrSourceRead ErrorCode = "SOURCE_READ"
	// ErrSourceClose 数据源关闭失败
	ErrSourceClose ErrorCode = "SOURCE_CLOSE"
	// ErrConsumerCallback 订阅者回调发生 panic
	ErrConsumerCallback ErrorCode = "CONSUMER_CALLBACK"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	StreamID string    `json:"stream_id,omitempty"`
	Cause    error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithStreamID tags the error with the stream it terminated.
func (e *Error) WithStreamID(id string) *Error {
	e.StreamID = id
	return e
}

// AsError extracts *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// =============================================================================
// 常用错误构造
// =============================================================================

// NewDuplicateAttachError 重复订阅错误，只投递给迟到的订阅者
func NewDuplicateAttachError(streamID string) *Error {
	return NewError(ErrDuplicateAttach, "publisher already has a subscriber").WithStreamID(streamID)
}

// NewInvalidDemandError 非法需求错误
func NewInvalidDemandError(streamID string, n int64) *Error {
	return NewError(ErrInvalidDemand, fmt.Sprintf("invalid request(n): %d (expected: >0)", n)).WithStreamID(streamID)
}

// NewSourceReadError 包装数据源读取错误
func NewSourceReadError(streamID string, cause error) *Error {
	return NewError(ErrSourceRead, "source read failed").WithCause(cause).WithStreamID(streamID)
}

// NewSourceCloseError 包装数据源关闭错误
func NewSourceCloseError(streamID string, cause error) *Error {
	return NewError(ErrSourceClose, "source close failed").WithCause(cause).WithStreamID(streamID)
}

// NewConsumerCallbackError 将订阅者回调中的 panic 转换为错误
func NewConsumerCallbackError(streamID, callback string, recovered any) *Error {
	return NewError(ErrConsumerCallback, fmt.Sprintf("subscriber %s panicked: %v", callback, recovered)).WithStreamID(streamID)
}
