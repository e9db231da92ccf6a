package aidashboard

import (
	"errors"
	"fmt"
)

// Code classifies assessment failures.
type Code string

const (
	// CodeInvalidInput marks a malformed snapshot. Fatal to that single
	// assessment only.
	CodeInvalidInput Code = "invalid_input"

	// CodeSignalUnavailable marks a failure to fetch health signals for a
	// patient. A per-patient failure; any cached assessment is still served.
	CodeSignalUnavailable Code = "signal_unavailable"

	// CodeStoreUnavailable marks an assessment store read/write failure.
	// Fatal to the whole request since no result can be trusted or recorded.
	CodeStoreUnavailable Code = "store_unavailable"
)

// Error is a classified assessment failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidInput builds an invalid_input error.
func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// SignalUnavailable wraps a signal fetch failure.
func SignalUnavailable(err error, format string, args ...interface{}) *Error {
	return &Error{Code: CodeSignalUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

// StoreUnavailable wraps an assessment store failure.
func StoreUnavailable(err error, format string, args ...interface{}) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsError converts any error into an *Error, defaulting unclassified errors
// to signal_unavailable since those arise from collaborator fetches.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeSignalUnavailable, Message: err.Error(), Err: err}
}

// CodeOf returns the classification of err, or the empty Code for
// unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
