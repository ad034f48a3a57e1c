package vote

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching against *Error.
var (
	ErrTransport = errors.New("vote: transport failure")
	ErrStatus    = errors.New("vote: unsuccessful status")
	ErrDecode    = errors.New("vote: malformed response")

	// ErrInFlight is returned when InFlightReject drops a click.
	ErrInFlight = errors.New("vote: request already in flight")

	// ErrNoWidget is returned when the page has no controls for a target.
	ErrNoWidget = errors.New("vote: no vote controls for target")
)

// Kind classifies a failed vote request.
type Kind int

const (
	KindTransport Kind = iota
	KindStatus
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// Error describes a failed request to the vote endpoint.
type Error struct {
	Kind Kind

	// StatusCode is set for KindStatus.
	StatusCode int

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("vote: server responded %d", e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("vote: decode response: %v", e.Err)
	}
	return fmt.Sprintf("vote: request failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the Kind's sentinel.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrStatus:
		return e.Kind == KindStatus
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}
