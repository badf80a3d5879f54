package errors

import (
	"errors"
	"fmt"
)

// Error kinds recognised by this module.
const (
	CodeConfiguration    = "CONFIG_INVALID"
	CodeTransactionState = "TX_STATE"
	CodePersistence      = "PERSISTENCE"
)

// Error represents a typed domain error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) is an *Error with the
// given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsConfiguration reports an invalid or unreachable configuration error.
func IsConfiguration(err error) bool { return HasCode(err, CodeConfiguration) }

// IsTransactionState reports an operation attempted outside its required
// transaction state.
func IsTransactionState(err error) bool { return HasCode(err, CodeTransactionState) }

// IsPersistence reports a staged write conflicting with storage constraints.
func IsPersistence(err error) bool { return HasCode(err, CodePersistence) }
