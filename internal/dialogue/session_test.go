package dialogue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/minqi/banxue/internal/persona"
)

// stubGenerator returns canned replies in order, or a fixed error.
type stubGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	// block, when non-nil, is closed by the test to release Generate.
	block chan struct{}
	// entered is signalled once Generate is inside the call.
	entered chan struct{}
	calls   [][]Turn
}

func (g *stubGenerator) Generate(ctx context.Context, history []Turn, p persona.Params) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, history)
	block := g.block
	entered := g.entered
	g.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if g.err != nil {
		return "", g.err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.replies) == 0 {
		return "好的。", nil
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r, nil
}

func testPersona() persona.Params {
	return persona.Params{Name: "encouraging", Instructions: "温柔一点", MaxTurnTokens: 512}
}

func TestTurn_AppendsUserThenAssistant(t *testing.T) {
	gen := &stubGenerator{replies: []string{"牛顿第二定律是 F = ma。"}}
	sess := Open(gen, testPersona())

	turn, err := sess.Turn(context.Background(), "什么是牛顿第二定律？")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Seq != 2 || turn.Speaker != SpeakerAssistant {
		t.Fatalf("unexpected assistant turn: %+v", turn)
	}

	h := sess.History()
	if len(h) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(h))
	}
	if h[0].Seq != 1 || h[0].Speaker != SpeakerUser || h[0].Content != "什么是牛顿第二定律？" {
		t.Fatalf("unexpected user turn: %+v", h[0])
	}
	if h[1].Content != "牛顿第二定律是 F = ma。" {
		t.Fatalf("unexpected reply: %q", h[1].Content)
	}
	if h[0].Persona != "encouraging" || h[1].Persona != "encouraging" {
		t.Fatal("turns not stamped with the session persona")
	}
}

func TestTurn_SequencesStayGapless(t *testing.T) {
	gen := &stubGenerator{replies: []string{"r1", "r2", "r3"}}
	sess := Open(gen, testPersona())

	for _, q := range []string{"q1", "q2", "q3"} {
		if _, err := sess.Turn(context.Background(), q); err != nil {
			t.Fatalf("turn %q: %v", q, err)
		}
	}

	h := sess.History()
	if len(h) != 6 {
		t.Fatalf("expected 6 turns, got %d", len(h))
	}
	for i, turn := range h {
		if turn.Seq != i+1 {
			t.Fatalf("gap at position %d: seq %d", i, turn.Seq)
		}
	}
}

func TestTurn_GeneratorSeesFullHistory(t *testing.T) {
	gen := &stubGenerator{replies: []string{"r1", "r2"}}
	sess := Open(gen, testPersona())

	sess.Turn(context.Background(), "q1")
	sess.Turn(context.Background(), "q2")

	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 generator calls, got %d", len(gen.calls))
	}
	// Second call sees q1, r1, q2.
	if len(gen.calls[1]) != 3 {
		t.Fatalf("expected 3 turns of history, got %d", len(gen.calls[1]))
	}
	if gen.calls[1][2].Content != "q2" {
		t.Fatalf("history tail should be the new user turn, got %q", gen.calls[1][2].Content)
	}
}

func TestTurn_GenerationFailureKeepsUserTurn(t *testing.T) {
	genErr := errors.New("backend down")
	gen := &stubGenerator{err: genErr}
	sess := Open(gen, testPersona())

	_, err := sess.Turn(context.Background(), "q1")
	var gf *ErrGenerationFailed
	if !errors.As(err, &gf) {
		t.Fatalf("expected ErrGenerationFailed, got: %v", err)
	}
	if !errors.Is(err, genErr) {
		t.Fatal("wrapped cause lost")
	}

	h := sess.History()
	if len(h) != 1 || h[0].Speaker != SpeakerUser {
		t.Fatalf("user turn should be retained, history: %+v", h)
	}
	if sess.State() != StateActive {
		t.Fatalf("session should stay active, got %q", sess.State())
	}

	// A retry continues the same numbering.
	gen.err = nil
	turn, err := sess.Turn(context.Background(), "q1 again")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if turn.Seq != 3 {
		t.Fatalf("expected retry reply at seq 3, got %d", turn.Seq)
	}
}

func TestTurn_CancellationRollsBackUserTurn(t *testing.T) {
	block := make(chan struct{})
	gen := &stubGenerator{block: block}
	sess := Open(gen, testPersona())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := sess.Turn(ctx, "q1")
		done <- err
	}()

	cancel()
	err := <-done
	close(block)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if h := sess.History(); len(h) != 0 {
		t.Fatalf("cancelled turn must leave no trace, history: %+v", h)
	}
}

func TestTurn_ClosedSession(t *testing.T) {
	gen := &stubGenerator{}
	sess := Open(gen, testPersona())
	sess.Close()

	_, err := sess.Turn(context.Background(), "q1")
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got: %v", err)
	}
	if len(sess.History()) != 0 {
		t.Fatal("closed session must not record turns")
	}

	// Closing twice is harmless.
	sess.Close()
	if sess.State() != StateClosed {
		t.Fatalf("expected closed, got %q", sess.State())
	}
}

func TestTurn_ConcurrentTurnRejected(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{}, 1)
	gen := &stubGenerator{block: block, entered: entered, replies: []string{"r1"}}
	sess := Open(gen, testPersona())

	done := make(chan error, 1)
	go func() {
		_, err := sess.Turn(context.Background(), "slow")
		done <- err
	}()
	<-entered // first turn is now inside the backend call

	_, err := sess.Turn(context.Background(), "impatient")
	if !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got: %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first turn should finish cleanly: %v", err)
	}

	// Only the slow turn landed.
	h := sess.History()
	if len(h) != 2 || h[0].Content != "slow" {
		t.Fatalf("unexpected history after rejection: %+v", h)
	}
}

func TestClose_InFlightTurnCompletes(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{}, 1)
	gen := &stubGenerator{block: block, entered: entered, replies: []string{"r1"}}
	sess := Open(gen, testPersona())

	done := make(chan error, 1)
	go func() {
		_, err := sess.Turn(context.Background(), "q1")
		done <- err
	}()
	<-entered

	// Close lands while the turn is inside the backend call; it does not
	// wait, and the turn still finishes.
	sess.Close()
	close(block)

	if err := <-done; err != nil {
		t.Fatalf("in-flight turn should complete: %v", err)
	}
	if sess.State() != StateClosed {
		t.Fatalf("expected closed, got %q", sess.State())
	}
	if h := sess.History(); len(h) != 2 {
		t.Fatalf("in-flight turn's reply should land, history: %+v", h)
	}
}

func TestHistory_ReturnsCopy(t *testing.T) {
	gen := &stubGenerator{replies: []string{"r1"}}
	sess := Open(gen, testPersona())
	sess.Turn(context.Background(), "q1")

	h := sess.History()
	h[0].Content = "tampered"

	if sess.History()[0].Content != "q1" {
		t.Fatal("History must return a copy")
	}
}
