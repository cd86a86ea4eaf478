package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed API call so callers can pick a fallback policy
// without string-matching messages.
type Kind int

const (
	// KindNetwork means no response was received at all.
	KindNetwork Kind = iota + 1
	// KindAuth means the server answered 401; the session must be torn down.
	KindAuth
	// KindServer means the server rejected the request (non-2xx other than 401).
	KindServer
	// KindDecode means the response body did not match the expected shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by every Client method.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 for network errors
	Message string // server-provided message when one was decodable
	Err     error  // underlying transport or decode error, may be nil
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("api: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Kind, e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err is an API error demanding session teardown.
func IsAuth(err error) bool {
	return isKind(err, KindAuth)
}

// IsNetwork reports whether err is an API error caused by an unreachable server.
func IsNetwork(err error) bool {
	return isKind(err, KindNetwork)
}

func isKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
