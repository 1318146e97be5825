// Package apperror provides coded errors that carry a cause, a call site and
// the key/value fields the structured logger expects.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// AppError is a coded error. Two AppErrors match under errors.Is when their
// codes are equal, so callers can test against a bare New(code).
type AppError struct {
	Code      Code
	Message   string
	Context   string
	Retryable bool
	cause     error
	stack     []uintptr
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (%s)", e.Context)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() error { return e.cause }

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// Option customizes an AppError built by New.
type Option func(*AppError)

func WithMessage(message string) Option {
	return func(e *AppError) { e.Message = message }
}

// WithContext names what failed: a source, a pool id, a config key.
func WithContext(context string) Option {
	return func(e *AppError) { e.Context = context }
}

func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

// New builds an error with the code's default message and retry class.
func New(code Code, opts ...Option) *AppError {
	info, ok := codes[code]
	if !ok {
		info.message = strings.ToLower(strings.ReplaceAll(string(code), "_", " "))
	}
	e := &AppError{
		Code:      code,
		Message:   info.message,
		Retryable: info.retryable,
		stack:     callers(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configuration reports a bad setting found while wiring components.
func Configuration(code Code, context string) *AppError {
	return New(code, WithContext(context))
}

// External reports a failed call to a node, subgraph or cache.
func External(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause))
}

// GetCode returns CodeUnknownError for errors that carry no code.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// IsRetryable reports whether a later attempt may succeed. Cancellation is
// never retryable; uncoded errors are assumed transient.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return true
}

// LogArgs flattens err into logger key/value pairs.
func LogArgs(err error) []any {
	var e *AppError
	if !errors.As(err, &e) {
		return []any{"error", err}
	}
	kv := []any{"error_code", string(e.Code), "error_message", e.Message, "retryable", e.Retryable}
	if e.Context != "" {
		kv = append(kv, "error_context", e.Context)
	}
	if e.cause != nil {
		kv = append(kv, "cause", e.cause.Error())
	}
	if site := e.origin(); site != "" {
		kv = append(kv, "origin", site)
	}
	return kv
}

// origin is the first frame outside this package.
func (e *AppError) origin() string {
	frames := runtime.CallersFrames(e.stack)
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.Contains(f.Function, "/internal/apperror.") {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if !more {
			return ""
		}
	}
}

func callers() []uintptr {
	var pcs [8]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}
