package booking

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindConflict
	KindInvalidRequest
	KindNotFound
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindInvalidRequest:
		return "invalid request"
	case KindNotFound:
		return "not found"
	case KindTransport:
		return "transport"
	}
	return "unknown"
}

// Error is the typed outcome of a failed call to the booking service.
type Error struct {
	Kind Kind
	// Message is the server-provided explanation, kept verbatim.
	Message string
	// Timeout marks a transport failure caused by the request deadline.
	Timeout bool
	Err     error
}

func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of a booking error. Errors that did not come from
// the booking boundary are KindUnknown.
func KindOf(err error) Kind {
	var bErr *Error
	if errors.As(err, &bErr) {
		return bErr.Kind
	}
	return KindUnknown
}

// Retryable reports whether the same request may be sent again. Only
// transport failures qualify; a create retry must reuse its token.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindTransport
}

// UserMessage is the text shown to a person for err. Transport failures never
// expose their underlying cause.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var bErr *Error
	if !errors.As(err, &bErr) {
		return "Something went wrong. Please try again."
	}

	switch bErr.Kind {
	case KindConflict:
		return "This action conflicts with another operation. Please try again."
	case KindNotFound:
		return "Resource not found."
	case KindInvalidRequest:
		if bErr.Message != "" {
			return bErr.Message
		}
		return "Invalid request."
	case KindTransport:
		if bErr.Timeout {
			return "Request timeout. Please check your connection."
		}
		return "Network error. Please check your internet connection."
	}
	return "Something went wrong. Please try again."
}

func asError(err error) *Error {
	var bErr *Error
	if errors.As(err, &bErr) {
		return bErr
	}
	return &Error{Kind: KindUnknown, Err: err}
}
