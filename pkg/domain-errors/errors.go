package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Handlers translate codes into protocol
// responses; domain logic branches on them with HasCode. The core never
// produces protocol-specific codes itself.
type Code string

const (
	// CodeInvalidInput marks malformed or missing caller input.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a lookup for a record that does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness or concurrent-modification conflict.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks a principal lacking the required authority.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvalidState marks an operation against a record in the wrong state.
	CodeInvalidState Code = "invalid_state"
	// CodeTimeout marks a deadline or lock-wait expiry; no state was changed.
	CodeTimeout Code = "timeout"
	// CodeInternal marks storage or other infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a code-carrying error. Construct via New or Wrap.
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

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap annotates err with a code and message while keeping the chain intact
// for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message, or a generic one for untyped errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a domain error code to an HTTP status for the adapter
// layer. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidState:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
