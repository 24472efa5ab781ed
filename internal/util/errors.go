package util

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrConfigNotFound     = errors.New("quiz config not found")
	ErrConfigNotPublished = errors.New("quiz config not published")
	ErrResultNotFound     = errors.New("quiz result not found")
	ErrAttemptNotFound    = errors.New("attempt not found in result")
)

// ValidationError 调用方可修正的输入错误，必须在任何写入之前返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransientError 读路径上可重试的错误（超时、限流、死锁等）
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PersistenceError 结果写入失败，原样返回给调用方，不自动重试
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AuditError 提交成功之后审计阶段的错误，只记录不上抛
type AuditError struct {
	Stage string
	Err   error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("audit %s: %v", e.Stage, e.Err)
}

func (e *AuditError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// MySQL error codes treated as retryable on reads.
const (
	mysqlTooManyConnections = 1040
	mysqlLockWaitTimeout    = 1205
	mysqlDeadlock           = 1213
)

// IsTransient reports whether a read may succeed if simply retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlTooManyConnections, mysqlLockWaitTimeout, mysqlDeadlock:
			return true
		}
	}
	return false
}

// ClassifyReadError wraps retryable driver errors as TransientError.
func ClassifyReadError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
