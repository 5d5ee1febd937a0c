package param

import (
	"errors"
	"fmt"
)

// Code is the error code reported in ERROR messages.
type Code uint8

// Error codes
const (
	CodeUnknownParameter  Code = 1
	CodeBufferTooSmall    Code = 2
	CodeInvalidEncoding   Code = 3
	CodeReadOnly          Code = 4
	CodeUnexpectedMessage Code = 5
	CodeMalformedPayload  Code = 6
)

var codeNames = map[Code]string{
	CodeUnknownParameter:  "unknown parameter",
	CodeBufferTooSmall:    "buffer too small",
	CodeInvalidEncoding:   "invalid encoding",
	CodeReadOnly:          "read-only parameter",
	CodeUnexpectedMessage: "unexpected message",
	CodeMalformedPayload:  "malformed payload",
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error code %d", uint8(c))
}

var (
	// ErrUnknownParameter indicates the parameter id is not recognized.
	ErrUnknownParameter = &Error{Code: CodeUnknownParameter, Param: anyParam}
	// ErrBufferTooSmall indicates the buffer can't hold the encoded value.
	ErrBufferTooSmall = &Error{Code: CodeBufferTooSmall, Param: anyParam}
	// ErrInvalidEncoding indicates the value can't be decoded or accepted.
	ErrInvalidEncoding = &Error{Code: CodeInvalidEncoding, Param: anyParam}
	// ErrReadOnly indicates the parameter can't be written.
	ErrReadOnly = &Error{Code: CodeReadOnly, Param: anyParam}
)

const anyParam = 0xFF

// Error is a recoverable parameter access error.
type Error struct {
	Code  Code
	Param uint8
}

// Error implements error.
func (e *Error) Error() string {
	if e.Param == anyParam {
		return e.Code.String()
	}
	return fmt.Sprintf("param %d: %s", e.Param, e.Code)
}

// Is matches errors with the same code, used by errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && (t.Param == anyParam || t.Param == e.Param)
}

func newError(code Code, id uint8) error {
	return &Error{Code: code, Param: id}
}

// CodeOf extracts the wire error code of err.
// Errors not raised by parameter access map to CodeMalformedPayload.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeMalformedPayload
}

// ParamOf extracts the parameter id of err, or 0xFF.
func ParamOf(err error) uint8 {
	var e *Error
	if errors.As(err, &e) {
		return e.Param
	}
	return anyParam
}
