package roulette

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 错误代码常量
const (
	// 系统级错误 (1000-1999)
	ErrCodeSystem          ErrorCode = "ROULETTE_1000"
	ErrCodeRedisConnection ErrorCode = "ROULETTE_1001"
	ErrCodeConfigInvalid   ErrorCode = "ROULETTE_1004"

	// 分布/抽选错误 (2000-2999)
	ErrCodeEmptyItems          ErrorCode = "ROULETTE_2000"
	ErrCodeFixedTotalExceeded  ErrorCode = "ROULETTE_2001"
	ErrCodeEmptyItemName       ErrorCode = "ROULETTE_2002"
	ErrCodeInvalidProbability  ErrorCode = "ROULETTE_2003"
	ErrCodeInvalidRange        ErrorCode = "ROULETTE_2004"
	ErrCodeInvalidWinnerIndex  ErrorCode = "ROULETTE_2005"
	ErrCodeAlreadyFinalized    ErrorCode = "ROULETTE_2006"
	ErrCodeSpinInProgress      ErrorCode = "ROULETTE_2007"
	ErrCodeWheelClosed         ErrorCode = "ROULETTE_2008"
	ErrCodeRandomSourceFailure ErrorCode = "ROULETTE_2009"

	// 配置文档错误 (3000-3999)
	ErrCodeProfileNotFound ErrorCode = "ROULETTE_3000"
	ErrCodeLastProfile     ErrorCode = "ROULETTE_3001"
	ErrCodeLastItem        ErrorCode = "ROULETTE_3002"
	ErrCodeItemNotFound    ErrorCode = "ROULETTE_3003"
	ErrCodeDocumentInvalid ErrorCode = "ROULETTE_3004"

	// 熔断相关错误 (5000-5999)
	ErrCodeCircuitBreakerOpen ErrorCode = "ROULETTE_5002"

	// 状态相关错误 (6000-6999)
	ErrCodeStateSaveFailure      ErrorCode = "ROULETTE_6001"
	ErrCodeStateLoadFailure      ErrorCode = "ROULETTE_6002"
	ErrCodeSerializationFailed   ErrorCode = "ROULETTE_6004"
	ErrCodeDeserializationFailed ErrorCode = "ROULETTE_6005"
)

// ErrorSeverity 错误严重程度
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityHigh     ErrorSeverity = "high"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityLow      ErrorSeverity = "low"
	SeverityInfo     ErrorSeverity = "info"
)

// RouletteError 增强的错误类型
type RouletteError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Details    string         `json:"details,omitempty"`
	Severity   ErrorSeverity  `json:"severity"`
	Timestamp  time.Time      `json:"timestamp"`
	Operation  string         `json:"operation,omitempty"`
	StackTrace string         `json:"stack_trace,omitempty"`
	Cause      error          `json:"-"`
	Retryable  bool           `json:"retryable"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Error 实现 error 接口
func (e *RouletteError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *RouletteError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is 接口, 按错误代码比较
func (e *RouletteError) Is(target error) bool {
	if t, ok := target.(*RouletteError); ok {
		return e.Code == t.Code
	}
	return false
}

// clone 复制错误, 预定义错误实例是共享的, 不能原地修改
func (e *RouletteError) clone() *RouletteError {
	c := *e
	c.Timestamp = time.Now()
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// WithCause 添加原因错误
func (e *RouletteError) WithCause(cause error) *RouletteError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetails 添加详细信息
func (e *RouletteError) WithDetails(details string) *RouletteError {
	c := e.clone()
	c.Details = details
	return c
}

// WithOperation 添加操作信息
func (e *RouletteError) WithOperation(operation string) *RouletteError {
	c := e.clone()
	c.Operation = operation
	return c
}

// WithMetadata 添加元数据
func (e *RouletteError) WithMetadata(key string, value any) *RouletteError {
	c := e.clone()
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
	return c
}

// WithSeverity 调整严重程度
func (e *RouletteError) WithSeverity(severity ErrorSeverity) *RouletteError {
	c := e.clone()
	c.Severity = severity
	return c
}

// WithStackTrace 添加堆栈跟踪
func (e *RouletteError) WithStackTrace() *RouletteError {
	c := e.clone()
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	c.StackTrace = string(buf[:n])
	return c
}

// recoveredError wraps a recovered panic value as a system error with the current stack
func recoveredError(operation string, recovered any) *RouletteError {
	return ErrSystemError.
		WithOperation(operation).
		WithDetails(fmt.Sprint(recovered)).
		WithStackTrace()
}

// NewError 创建新的错误
func NewError(code ErrorCode, message string) *RouletteError {
	return &RouletteError{
		Code:      code,
		Message:   message,
		Severity:  SeverityMedium,
		Timestamp: time.Now(),
		Retryable: false,
	}
}

// NewRetryableError 创建可重试的错误
func NewRetryableError(code ErrorCode, message string) *RouletteError {
	return &RouletteError{
		Code:      code,
		Message:   message,
		Severity:  SeverityMedium,
		Timestamp: time.Now(),
		Retryable: true,
	}
}

// NewCriticalError 创建严重错误
func NewCriticalError(code ErrorCode, message string) *RouletteError {
	err := &RouletteError{
		Code:      code,
		Message:   message,
		Severity:  SeverityCritical,
		Timestamp: time.Now(),
		Retryable: false,
	}
	return err.WithStackTrace()
}

// 预定义的错误实例
var (
	// 系统级错误
	ErrSystemError           = NewCriticalError(ErrCodeSystem, "system error occurred")
	ErrRedisConnectionFailed = NewRetryableError(ErrCodeRedisConnection, "Redis connection failed")
	ErrInvalidConfig         = NewError(ErrCodeConfigInvalid, "configuration is invalid")

	// 分布/抽选错误
	ErrEmptyItems          = NewError(ErrCodeEmptyItems, "cannot spin with zero items")
	ErrFixedTotalExceeded  = NewError(ErrCodeFixedTotalExceeded, "fixed probabilities exceed 100%")
	ErrEmptyItemName       = NewError(ErrCodeEmptyItemName, "item name cannot be empty")
	ErrInvalidProbability  = NewError(ErrCodeInvalidProbability, "invalid probability: must be a finite number")
	ErrInvalidRange        = NewError(ErrCodeInvalidRange, "invalid range: min must be less than or equal to max")
	ErrInvalidWinnerIndex  = NewError(ErrCodeInvalidWinnerIndex, "winner index is outside the distribution")
	ErrAlreadyFinalized    = NewError(ErrCodeAlreadyFinalized, "session already finalized")
	ErrSpinInProgress      = NewError(ErrCodeSpinInProgress, "a spin is already in progress")
	ErrWheelClosed         = NewError(ErrCodeWheelClosed, "wheel has been closed")
	ErrRandomSourceFailure = NewRetryableError(ErrCodeRandomSourceFailure, "random source failure")

	// 配置文档错误
	ErrProfileNotFound = NewError(ErrCodeProfileNotFound, "profile not found")
	ErrLastProfile     = NewError(ErrCodeLastProfile, "the last profile cannot be deleted")
	ErrLastItem        = NewError(ErrCodeLastItem, "the last item cannot be deleted")
	ErrItemNotFound    = NewError(ErrCodeItemNotFound, "item index out of range")
	ErrDocumentInvalid = NewError(ErrCodeDocumentInvalid, "profile document is invalid")

	// 熔断相关错误
	ErrCircuitBreakerOpen = NewRetryableError(ErrCodeCircuitBreakerOpen, "circuit breaker is open")

	// 状态相关错误
	ErrStateSaveFailure      = NewRetryableError(ErrCodeStateSaveFailure, "failed to save state")
	ErrStateLoadFailure      = NewRetryableError(ErrCodeStateLoadFailure, "failed to load state")
	ErrSerializationFailed   = NewError(ErrCodeSerializationFailed, "serialization failed")
	ErrDeserializationFailed = NewError(ErrCodeDeserializationFailed, "deserialization failed")
)

// IsRetryable 判断错误是否可以重试
func IsRetryable(err error) bool {
	var rouletteErr *RouletteError
	if errors.As(err, &rouletteErr) && rouletteErr.Retryable {
		return true
	}
	return IsRetryableError(err)
}

// IsRetryableError 检查是否为可重试的传输层错误
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"network is unreachable",
		"temporary failure",
		"server closed",
		"broken pipe",
		"i/o timeout",
		"dial tcp",
		"read tcp",
		"write tcp",
		"connection timed out",
		"no route to host",
		"host is down",
		"connection aborted",
		"socket is not connected",
		"operation timed out",
		"redis: connection pool timeout",
		"redis: client is closed",
		"context deadline exceeded",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
