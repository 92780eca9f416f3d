package conversation

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRequest means the caller violated a precondition, e.g. asked
	// for a reply without supplying any incoming message.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrGenerationUnavailable means producing opener/reply text failed.
	// Retryable by the caller; the engine does not retry internally.
	ErrGenerationUnavailable = errors.New("reply generation unavailable")

	// ErrClassificationUnavailable means the readiness check failed or
	// returned a malformed object. Never defaulted to "not ready".
	ErrClassificationUnavailable = errors.New("readiness classification unavailable")
)

// MatchReadyError is a control signal, not a failure: the match reached the
// terminal READY_TO_MEET state and the caller must switch to its own meeting
// handling instead of sending a generated message.
type MatchReadyError struct {
	MatchID string
	Name    string
	Since   time.Time
}

func (e *MatchReadyError) Error() string {
	name := e.Name
	if name == "" {
		name = e.MatchID
	}

	return fmt.Sprintf("match %s is ready to meet (since %s)", name, e.Since.Format(time.RFC3339))
}
