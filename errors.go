package binder

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/kbinder/go-binder/internal/txn"
)

// Error represents a structured go-binder error with context and errno
// mapping.
type Error struct {
	Op     string    // Operation that failed (e.g., "TRANSACT", "OPEN")
	Handle uint32    // Remote handle (0 if not applicable)
	Code   ErrorCode // High-level error category
	Errno  syscall.Errno // Kernel errno (0 if not applicable)
	Status int32     // Binder transaction status, when one was returned
	Msg    string    // Human-readable message
	Inner  error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Handle != 0 {
		parts = append(parts, fmt.Sprintf("handle=%d", e.Handle))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("binder: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("binder: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support by comparing error codes.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents high-level error categories, matching the kinds
// enumerated in the error handling design: transport, dead-object,
// protocol, transaction-level, and logical.
type ErrorCode string

const (
	ErrCodeTransport    ErrorCode = "transport error"
	ErrCodeDeadObject   ErrorCode = "object is dead"
	ErrCodeProtocol     ErrorCode = "malformed parcel"
	ErrCodeTransaction  ErrorCode = "transaction-level failure"
	ErrCodeInvalid      ErrorCode = "invalid parameters"
	ErrCodeNotSupported ErrorCode = "transaction not supported"
	ErrCodePermission   ErrorCode = "permission denied"
	ErrCodeTimeout      ErrorCode = "timeout"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a new structured error carrying a kernel errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: code, Errno: errno, Msg: errno.Error()}
}

// NewHandleError creates a new error scoped to a specific remote handle.
func NewHandleError(op string, handle uint32, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Handle: handle, Code: code, Msg: msg}
}

// NewStatusError creates an error carrying a Binder transaction status
// code (e.g. BR_FAILED_REPLY's payload, or -ESTALE for a dead object).
func NewStatusError(op string, handle uint32, status int32) *Error {
	code := ErrCodeTransaction
	if status == estale {
		code = ErrCodeDeadObject
	}
	return &Error{Op: op, Handle: handle, Code: code, Status: status}
}

const estale int32 = -116

// WrapError wraps an existing error with binder operation context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if be, ok := inner.(*Error); ok {
		return &Error{
			Op: op, Handle: be.Handle, Code: be.Code, Errno: be.Errno,
			Status: be.Status, Msg: be.Msg, Inner: be.Inner,
		}
	}
	var dead *txn.ErrDead
	if errors.As(inner, &dead) {
		return &Error{Op: op, Handle: dead.Handle, Code: ErrCodeDeadObject, Status: estale, Msg: inner.Error(), Inner: inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Code: ErrCodeTransport, Msg: inner.Error(), Inner: inner}
}

// mapErrnoToCode maps syscall errno to binder error codes.
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalid
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeNotSupported
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermission
	case syscall.ETIMEDOUT:
		return ErrCodeTimeout
	default:
		return ErrCodeTransport
	}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// IsErrno checks if an error matches a specific errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Errno == errno
	}
	return false
}

// IsDead reports whether err represents a dead-object failure
// (spec.md §7's -ESTALE short circuit).
func IsDead(err error) bool {
	return IsCode(err, ErrCodeDeadObject)
}
