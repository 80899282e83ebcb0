package llm

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks transport-level generation failures: the service
// could not be reached or the call timed out. Never retried here.
var ErrUnavailable = errors.New("generation service unavailable")

// GatewayError is a non-success reply from the generation service.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("generation service returned status %d: %s", e.StatusCode, e.Body)
}

// ParseError means the model's reply was not a valid question array even
// after bracket extraction. Preview carries a truncated head of the reply
// for debugging; the full payload is never echoed back.
type ParseError struct {
	Preview string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model reply is not a valid question array: %v (reply begins: %q)", e.Err, e.Preview)
}

func (e *ParseError) Unwrap() error { return e.Err }

const previewLimit = 200

func preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit] + "..."
}
