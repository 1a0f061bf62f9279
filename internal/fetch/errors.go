package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindNetwork is a transport failure other than a timeout.
	KindNetwork Kind = iota
	// KindTimeout is a request that exceeded the client timeout.
	KindTimeout
	// KindStatus is a response outside the 2xx range.
	KindStatus
)

// String returns the kind name used in log output.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	default:
		return "network"
	}
}

// Sentinel errors matched by *Error through errors.Is.
var (
	ErrNetwork = errors.New("network error")
	ErrTimeout = errors.New("request timed out")
	ErrStatus  = errors.New("unexpected HTTP status")
)

// Error is a failed fetch of one URL.
type Error struct {
	Kind Kind

	// URL is the requested URL.
	URL string

	// StatusCode is set for KindStatus.
	StatusCode int

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	case KindTimeout:
		return fmt.Sprintf("fetch %s: timed out", e.URL)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of e's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrStatus:
		return e.Kind == KindStatus
	}
	return false
}
