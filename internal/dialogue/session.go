// Package dialogue holds conversation state for one tutoring session:
// an append-only turn history under a fixed persona, fed to the external
// dialogue-generation collaborator.
package dialogue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minqi/banxue/internal/persona"
)

// State is the session lifecycle state.
type State string

const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// Session is the single authority over one conversation's state.
// Turn operations are serialized: a second turn while one is in flight
// is rejected with ErrSessionBusy.
type Session struct {
	id      string
	persona persona.Params
	gen     Generator
	now     func() time.Time

	// turnMu is held across a whole turn, external call included.
	turnMu sync.Mutex
	// mu guards turns and state for short reads/writes.
	mu    sync.Mutex
	turns []Turn
	state State
}

// Open creates an active session under the given persona.
func Open(gen Generator, p persona.Params) *Session {
	return &Session{
		id:      uuid.New().String(),
		persona: p,
		gen:     gen,
		now:     time.Now,
		state:   StateActive,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Persona returns the persona this session was opened with.
func (s *Session) Persona() persona.Params { return s.persona }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the turn history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Turn appends the user's utterance, asks the dialogue backend for a reply
// with the full history, appends and returns the assistant turn.
//
// Failure semantics:
//   - backend failure: the user turn is retained (intent is never lost),
//     no assistant turn is appended, the session stays active, and the
//     error wraps ErrGenerationFailed so the caller may retry;
//   - caller cancellation: the user turn is rolled back — the session is
//     exactly as it was before the call.
func (s *Session) Turn(ctx context.Context, userText string) (Turn, error) {
	if !s.turnMu.TryLock() {
		return Turn{}, ErrSessionBusy
	}
	defer s.turnMu.Unlock()

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return Turn{}, ErrSessionClosed
	}
	userTurn := Turn{
		Seq:       len(s.turns) + 1,
		Speaker:   SpeakerUser,
		Content:   userText,
		Persona:   s.persona.Name,
		Timestamp: s.now(),
	}
	s.turns = append(s.turns, userTurn)
	history := make([]Turn, len(s.turns))
	copy(history, s.turns)
	s.mu.Unlock()

	reply, err := s.gen.Generate(ctx, history, s.persona)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.rollbackTurn(userTurn.Seq)
			return Turn{}, err
		}
		return Turn{}, &ErrGenerationFailed{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	assistantTurn := Turn{
		Seq:       len(s.turns) + 1,
		Speaker:   SpeakerAssistant,
		Content:   reply,
		Persona:   s.persona.Name,
		Timestamp: s.now(),
	}
	s.turns = append(s.turns, assistantTurn)
	return assistantTurn, nil
}

// Close transitions the session to closed. Further turns fail with
// ErrSessionClosed. Closing twice is a no-op. Close does not wait for an
// in-flight Turn: a turn already past the closed check runs to completion
// and its assistant reply still lands in the history.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// rollbackTurn removes the trailing turn with the given sequence number.
// Only the turn holding turnMu can have appended it, so the tail check
// is a safety net, not a race guard.
func (s *Session) rollbackTurn(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.turns); n > 0 && s.turns[n-1].Seq == seq {
		s.turns = s.turns[:n-1]
	}
}
