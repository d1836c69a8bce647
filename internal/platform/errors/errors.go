// Package errors is the agent's structured error: a machine code, a message, an optional
// field and the wrapped cause. Import it as perr
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an error for HTTP status, console output and result codes
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	// ErrorCodePanic is set by the recover middleware
	ErrorCodePanic
	// ErrorCodeUnavailable is transient: the database, the modem or an agent is not answering
	ErrorCodeUnavailable
	// ErrorCodeForbidden is a destination the MMI builder refuses to divert to
	ErrorCodeForbidden
	ErrorCodeInvalidArgument
	ErrorCodeValidation
	ErrorCodeJSON
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB
	// ErrorCodeBusy is a device held by another apply; advisory, never a failure status
	ErrorCodeBusy
	// ErrorCodePrecondition is configuration only an operator edit can fix (no N2 guard, no label)
	ErrorCodePrecondition
)

var codeNames = [...]string{
	ErrorCodeUnknown:         "UNKNOWN",
	ErrorCodePanic:           "PANIC",
	ErrorCodeUnavailable:     "UNAVAILABLE",
	ErrorCodeForbidden:       "FORBIDDEN",
	ErrorCodeInvalidArgument: "INVALID_ARGUMENT",
	ErrorCodeValidation:      "VALIDATION",
	ErrorCodeJSON:            "JSON",
	ErrorCodeNotFound:        "NOT_FOUND",
	ErrorCodeDuplicateKey:    "DUPLICATE_KEY",
	ErrorCodeDB:              "DB",
	ErrorCodeBusy:            "BUSY",
	ErrorCodePrecondition:    "PRECONDITION",
}

func (c ErrorCode) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("CODE_%d", uint16(c))
}

// HTTPStatusCode is the status the agent API answers with for c
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeInvalidArgument:
		return http.StatusUnprocessableEntity
	case ErrorCodeDuplicateKey, ErrorCodeBusy:
		return http.StatusConflict
	case ErrorCodePrecondition:
		return http.StatusPreconditionFailed
	case ErrorCodeValidation, ErrorCodeJSON:
		return http.StatusBadRequest
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var ErrNotFound = New(ErrorCodeNotFound, "not found")

type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
}

// Wire is the JSON error body of the agent HTTP API
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.orig != nil:
		return e.msg + ": " + e.orig.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error   { return e.orig }
func (e *Error) Code() ErrorCode { return e.code }
func (e *Error) Field() string   { return e.field }

// ToWire drops the cause; it may carry SQL or modem detail
func (e *Error) ToWire() Wire { return Wire{Code: e.code, Message: e.msg, Field: e.field} }

// WireFrom maps any error to a body; foreign errors become UNKNOWN with their text
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf returns the outermost code in the chain, Unknown for foreign errors
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WithField returns a copy of the outermost *Error naming the offending field; foreign errors pass through
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

func NotFoundf(format string, a ...any) error     { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error   { return Newf(ErrorCodeInvalidArgument, format, a...) }
func DBf(format string, a ...any) error           { return Newf(ErrorCodeDB, format, a...) }
func JSONErrf(format string, a ...any) error      { return Newf(ErrorCodeJSON, format, a...) }
func PanicErrf(format string, a ...any) error     { return Newf(ErrorCodePanic, format, a...) }
func Busyf(format string, a ...any) error         { return Newf(ErrorCodeBusy, format, a...) }
func Preconditionf(format string, a ...any) error { return Newf(ErrorCodePrecondition, format, a...) }
func Unavailablef(format string, a ...any) error  { return Newf(ErrorCodeUnavailable, format, a...) }
