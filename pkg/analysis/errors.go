// ABOUTME: Analysis error taxonomy
// ABOUTME: DecodeError for unusable resources, ErrCancelled for abandoned calls
package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled reports that the caller's context ended before the
	// analysis finished. It wraps the context error.
	ErrCancelled = errors.New("analysis cancelled")

	// ErrChannelOutOfRange reports a channel selection the decoded audio
	// does not have.
	ErrChannelOutOfRange = errors.New("channel index out of range")
)

// DecodeError reports a resource that could not be fetched or decoded:
// unreachable host, HTTP error, unsupported format, corrupt or empty stream.
type DecodeError struct {
	Resource string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Resource, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err carries a *DecodeError
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
