package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange indicates a port range that is reversed or outside 1-65535.
	ErrInvalidRange = errors.New("invalid port range")
	// ErrInvalidCIDR indicates a malformed address/prefix block.
	ErrInvalidCIDR = errors.New("invalid CIDR block")
	// ErrMissingTarget indicates a request with neither a host nor a network.
	ErrMissingTarget = errors.New("no target specified")
	// ErrInvalidOptions indicates a thread count or timeout the scanner refuses to run with.
	ErrInvalidOptions = errors.New("invalid scan options")
)

// RequestError is returned before any probing starts. It matches its Kind with errors.Is.
type RequestError struct {
	Kind   error
	Detail string
}

func (e *RequestError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

func requestErrorf(kind error, format string, args ...any) error {
	return &RequestError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
