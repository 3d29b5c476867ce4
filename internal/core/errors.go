package core

import (
	"errors"
	"maps"
)

type ErrorCode int

const (
	ErrorCodeInternal ErrorCode = iota
	// ErrorCodeTransport covers connection failures, timeouts and 5xx replies.
	ErrorCodeTransport
	// ErrorCodeCatalog covers malformed or empty catalog responses.
	ErrorCodeCatalog
	// ErrorCodeCorrupt covers an unreadable progress store. Resuming safely
	// is impossible, so callers must treat it as fatal.
	ErrorCodeCorrupt
	// ErrorCodePipeline covers a non-zero exit of an external raster tool.
	ErrorCodePipeline
)

type AppError struct {
	Code    ErrorCode
	Message string
	Err     error

	Operation string
	Meta      map[string]string
	// Retryable says the caller's own retry loop may try again.
	Retryable bool
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); !ok {
		return false
	} else {
		return e.Code == t.Code
	}
}

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Clone performs a copy of the error + deep-copy of Meta.
func (e *AppError) Clone() *AppError {
	if e == nil {
		return nil
	}
	c := *e
	if e.Meta == nil {
		return &c
	}

	c.Meta = make(map[string]string, len(e.Meta))
	maps.Copy(c.Meta, e.Meta)

	return &c
}

// WithOper returns a new copy of error with operation set.
func (e *AppError) WithOper(o string) *AppError {
	if e == nil {
		return nil
	}
	c := e.Clone()
	c.Operation = o

	return c
}

// WithMeta returns a new copy of error with new key-value meta added.
func (e *AppError) WithMeta(k, v string) *AppError {
	if e == nil {
		return nil
	}
	c := e.Clone()
	if c.Meta == nil {
		c.Meta = make(map[string]string, 1)
	}
	c.Meta[k] = v
	return c
}

// WithRetryable returns a new copy of error with Retryable set.
func (e *AppError) WithRetryable(r bool) *AppError {
	if e == nil {
		return nil
	}
	c := e.Clone()
	c.Retryable = r
	return c
}

func AsAppError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Some useful constructors.

func NewTransportError(message string, err error, op string) *AppError {
	return &AppError{
		Code:      ErrorCodeTransport,
		Message:   message,
		Err:       err,
		Operation: op,
		Retryable: true,
	}
}

func NewCatalogError(message string, err error, op string) *AppError {
	return &AppError{
		Code:      ErrorCodeCatalog,
		Message:   message,
		Err:       err,
		Operation: op,
	}
}

func NewCorruptStoreError(path string, err error, op string) *AppError {
	return &AppError{
		Code:      ErrorCodeCorrupt,
		Message:   "progress store " + path + " is unreadable",
		Err:       err,
		Operation: op,
		Meta:      map[string]string{"path": path},
	}
}

func NewPipelineError(stage string, err error, op string) *AppError {
	return &AppError{
		Code:      ErrorCodePipeline,
		Message:   "pipeline stage " + stage + " failed",
		Err:       err,
		Operation: op,
		Meta:      map[string]string{"stage": stage},
	}
}
