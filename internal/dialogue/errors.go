package dialogue

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned for turns against a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrUnknownSession is returned when a session id resolves to nothing.
	ErrUnknownSession = errors.New("unknown session")

	// ErrSessionBusy is returned when a turn arrives while another turn
	// on the same session is still in flight. Concurrent turns are
	// rejected, not queued; the caller retries after the first completes.
	ErrSessionBusy = errors.New("session busy")
)

// ErrGenerationFailed wraps a dialogue-backend failure. The user turn that
// triggered the call is retained and the session stays active, so the
// caller can retry the same turn.
type ErrGenerationFailed struct {
	Err error
}

func (e *ErrGenerationFailed) Error() string {
	return fmt.Sprintf("dialogue generation failed: %v", e.Err)
}

func (e *ErrGenerationFailed) Unwrap() error { return e.Err }
