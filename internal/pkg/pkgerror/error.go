package pkgerror

import (
	"errors"
	"net/http"
)

type Code int

const (
	CodeInternal Code = iota
	CodeInvalidInput
	CodeNotFound
	CodeConflict
	CodeRateLimited
	CodeUnavailable
)

type Type int

const (
	TypeServer Type = iota
	TypeBusiness
)

// Error is the error shape endpoints return. Business errors carry a message
// that is safe to show to the caller; server errors hide the cause.
type Error struct {
	msg  string
	code Code
	typ  Type
	err  error
	meta map[string]string
}

func NewBusiness(msg string, code Code) *Error {
	return &Error{msg: msg, code: code, typ: TypeBusiness}
}

func NewServer(err error) *Error {
	return &Error{msg: "internal server error", code: CodeInternal, typ: TypeServer, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Msg() string { return e.msg }

func (e *Error) Code() Code { return e.code }

func (e *Error) Type() Type { return e.typ }

// WithCause keeps err reachable through errors.Is/As without exposing it in Msg.
func (e *Error) WithCause(err error) *Error {
	e.err = err
	return e
}

func (e *Error) WithMeta(key, value string) *Error {
	if e.meta == nil {
		e.meta = map[string]string{}
	}
	e.meta[key] = value
	return e
}

func (e *Error) Meta() map[string]string { return e.meta }

func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// From returns err as *Error, wrapping unknown errors as server errors.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewServer(err)
}
