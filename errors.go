package later

import (
	"errors"
	"fmt"
)

// Kind classifies every error the service surfaces to its callers. The
// transport layer maps kinds to status codes; nothing is silently recovered.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedURL
	KindRetrievalFailed
	KindAccessDenied
	KindUnsupportedContentType
	KindUserNotFound
	KindItemNotFound
	KindNotAuthorized
	KindInvalidArgument
	KindCancelled
)

// String returns a stable label for the kind, suitable for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindMalformedURL:
		return "malformed_url"
	case KindRetrievalFailed:
		return "retrieval_failed"
	case KindAccessDenied:
		return "access_denied"
	case KindUnsupportedContentType:
		return "unsupported_content_type"
	case KindUserNotFound:
		return "user_not_found"
	case KindItemNotFound:
		return "item_not_found"
	case KindNotAuthorized:
		return "not_authorized"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Error is a kinded error. It wraps an underlying cause when there is one, so
// errors.Is/errors.As keep working through it.
type Error struct {
	kind Kind
	msg  string
	err  error
}

// E creates a new kinded error.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a kinded error around an underlying cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// KindOf extracts the kind from an error chain, or KindUnknown if no kinded
// error is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
