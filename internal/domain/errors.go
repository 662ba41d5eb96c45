package domain

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindFetch
	KindInference
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindFetch:
		return "fetch"
	case KindInference:
		return "inference"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is a pipeline failure tagged with the stage that produced it.
// Details carries diagnostic text for the error envelope (upstream body,
// offending completion text) and may be empty.
type Error struct {
	Kind    ErrorKind
	Err     error
	Details string
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with kind. If err carries a StatusError its body
// becomes the details.
func NewError(kind ErrorKind, err error) *Error {
	e := &Error{Kind: kind, Err: err}
	var se *StatusError
	if errors.As(err, &se) {
		e.Details = se.Body
	}
	return e
}

// KindOf reports the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// StatusError is a non-success HTTP response from an upstream service.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}
