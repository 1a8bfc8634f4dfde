package agentclient

import "errors"

// Kind classifies a normalized transport failure.
type Kind int

const (
	KindNetwork Kind = iota
	KindAuth
	KindBadRequest
	KindNotFound
	KindUnavailable
	KindConfig
	KindUnexpected
)

// Error is a transport failure normalized into a message the dashboard
// can show directly.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// ErrNotConfigured is returned by every call when no service URL is set.
var ErrNotConfigured = &Error{
	Kind:    KindConfig,
	Message: "healing agent service URL is not configured",
}

// AsKind reports whether err is a normalized transport error of the
// given kind.
func AsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func networkError(cause error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "cannot reach the healing agent service: network error or service down",
		cause:   cause,
	}
}

func statusError(code int, detail string) *Error {
	switch code {
	case 401, 403:
		return &Error{Kind: KindAuth, Message: "not authorized to use the healing agent service"}
	case 400:
		msg := "the service rejected the request"
		if detail != "" {
			msg = "the service rejected the request: " + detail
		}
		return &Error{Kind: KindBadRequest, Message: msg}
	case 404:
		return &Error{Kind: KindNotFound, Message: "run not found on the healing agent service"}
	case 503:
		return &Error{Kind: KindUnavailable, Message: "the healing agent service is not ready, try again shortly"}
	default:
		msg := "unexpected response from the healing agent service"
		if detail != "" {
			msg = msg + ": " + detail
		}
		return &Error{Kind: KindUnexpected, Message: msg}
	}
}
