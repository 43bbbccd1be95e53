package response

import (
	"fmt"
)

const (
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeNotFound     = 404

	CodeNoProvider        = 1001
	CodeRemoteUnavailable = 1002
	CodeTransactionFailed = 1003
	CodeBusy              = 1004
	CodeInvalidState      = 1005

	// same code a browser wallet returns for a declined request (EIP-1193)
	CodeUserRejected = 4001
)

// Error holds an error code, message and error itself
type Error struct {
	Code     int
	Message  interface{}
	Internal error
}

func NewError(code int, message interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) SetInternal(err error) *Error {
	e.Internal = err
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %v", e.Code, e.Message)
}

// Unwrap exposes the internal error to errors.Is.
func (e *Error) Unwrap() error {
	return e.Internal
}
