// Package engine is the facade the outer surfaces (CLI, future UI) talk
// to. It routes calls to the dialogue sessions, the mistake store, the
// analytics engine and the voice channel; the session map is the only
// business state it holds.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/minqi/banxue/internal/analytics"
	"github.com/minqi/banxue/internal/classify"
	"github.com/minqi/banxue/internal/dialogue"
	"github.com/minqi/banxue/internal/persona"
	"github.com/minqi/banxue/internal/store"
	"github.com/minqi/banxue/internal/voice"
)

// Options wires the engine's collaborators. Store and Personas are
// required; Generator enables dialogue, Voice enables voice turns,
// Classifier and Advisor enable the LLM extras.
type Options struct {
	Store      *store.Store
	Personas   *persona.Registry
	Generator  dialogue.Generator
	Voice      *voice.Channel
	Classifier *classify.Classifier
	Advisor    *analytics.Advisor
	Analytics  analytics.Config
	Logger     *zap.Logger
}

// Manager routes UI-facing calls to the owning component.
type Manager struct {
	store      *store.Store
	analytics  *analytics.Engine
	advisor    *analytics.Advisor
	personas   *persona.Registry
	gen        dialogue.Generator
	voice      *voice.Channel
	classifier *classify.Classifier
	log        *zap.Logger

	// The session map is the only shared mutable structure; per-session
	// turn serialization lives inside dialogue.Session.
	mu       sync.RWMutex
	sessions map[string]*dialogue.Session
}

// New creates a Manager from options.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine requires a store")
	}
	if opts.Personas == nil {
		opts.Personas = persona.Default()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Analytics
	if cfg == (analytics.Config{}) {
		cfg = analytics.DefaultConfig()
	}

	return &Manager{
		store:      opts.Store,
		analytics:  analytics.New(opts.Store, cfg),
		advisor:    opts.Advisor,
		personas:   opts.Personas,
		gen:        opts.Generator,
		voice:      opts.Voice,
		classifier: opts.Classifier,
		log:        log,
		sessions:   make(map[string]*dialogue.Session),
	}, nil
}

// Analytics exposes the report engine (clock injection in tests).
func (m *Manager) Analytics() *analytics.Engine { return m.analytics }

// CreateSession opens a dialogue session under the named persona and
// returns its id. All later operations address the session by this id;
// there is no ambient "current session".
func (m *Manager) CreateSession(personaName string) (string, error) {
	if m.gen == nil {
		return "", fmt.Errorf("no dialogue backend configured")
	}
	p, err := m.personas.Resolve(personaName)
	if err != nil {
		return "", err
	}

	sess := dialogue.Open(m.gen, p)

	m.mu.Lock()
	m.sessions[sess.ID()] = sess
	m.mu.Unlock()

	m.log.Info("session created",
		zap.String("session", sess.ID()), zap.String("persona", p.Name))
	return sess.ID(), nil
}

// SendText runs one text turn against a session.
func (m *Manager) SendText(ctx context.Context, sessionID, text string) (dialogue.Turn, error) {
	sess, err := m.session(sessionID)
	if err != nil {
		return dialogue.Turn{}, err
	}
	return sess.Turn(ctx, text)
}

// SendVoice runs one voice turn against a session: transcribe, feed the
// same session a text turn would use, synthesize the reply.
func (m *Manager) SendVoice(ctx context.Context, sessionID string, audio []byte) (*voice.Result, error) {
	if m.voice == nil {
		return nil, fmt.Errorf("no voice channel configured")
	}
	sess, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	return m.voice.Turn(ctx, sess, audio)
}

// CloseSession closes a session. The entry stays in the map so later
// turns fail with ErrSessionClosed rather than ErrUnknownSession.
func (m *Manager) CloseSession(sessionID string) error {
	sess, err := m.session(sessionID)
	if err != nil {
		return err
	}
	sess.Close()
	m.log.Info("session closed", zap.String("session", sessionID))
	return nil
}

// History returns a copy of a session's turn history.
func (m *Manager) History(sessionID string) ([]dialogue.Turn, error) {
	sess, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.History(), nil
}

func (m *Manager) session(id string) (*dialogue.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dialogue.ErrUnknownSession, id)
	}
	return sess, nil
}

// CreateAssignment records a new assignment, optionally with a due date.
func (m *Manager) CreateAssignment(ctx context.Context, title string, due *time.Time) (*store.Assignment, error) {
	return m.store.CreateAssignmentDue(ctx, title, due)
}

// ListAssignments lists assignments, optionally filtered by status.
func (m *Manager) ListAssignments(ctx context.Context, status *store.Status) ([]store.Assignment, error) {
	return m.store.ListAssignments(ctx, status)
}

// DeleteAssignment removes an assignment and all its mistake records.
func (m *Manager) DeleteAssignment(ctx context.Context, id string) error {
	return m.store.DeleteAssignment(ctx, id)
}

// ArchiveAssignment marks an assignment archived.
func (m *Manager) ArchiveAssignment(ctx context.Context, id string) error {
	return m.store.ArchiveAssignment(ctx, id)
}

// RefreshAssignments archives past-due assignments and reports the count.
func (m *Manager) RefreshAssignments(ctx context.Context) (int, error) {
	return m.store.RefreshAssignments(ctx, time.Now())
}

// AddMistake records a mistake. When the caller left the topic tag empty
// and a classifier is configured, the tag is filled in best-effort — a
// classification failure never blocks the write.
func (m *Manager) AddMistake(ctx context.Context, p store.AddMistakeParams) (*store.Mistake, error) {
	if p.TopicTag == "" && m.classifier != nil {
		tag, err := m.classifier.Classify(ctx, p.Description)
		if err != nil {
			m.log.Warn("topic classification failed, storing untagged", zap.Error(err))
		} else {
			p.TopicTag = tag
		}
	}
	return m.store.AddMistake(ctx, p)
}

// ListMistakes lists mistake records matching the filter.
func (m *Manager) ListMistakes(ctx context.Context, f store.MistakeFilter) ([]store.Mistake, error) {
	return m.store.ListMistakes(ctx, f)
}

// DeleteMistake removes one mistake record.
func (m *Manager) DeleteMistake(ctx context.Context, id string) error {
	return m.store.DeleteMistake(ctx, id)
}

// RetagMistake corrects a mistake record's topic tag.
func (m *Manager) RetagMistake(ctx context.Context, id, tag string) error {
	return m.store.RetagMistake(ctx, id, tag)
}

// Report computes the analytics report for the given window (0 = all-time).
func (m *Manager) Report(ctx context.Context, window time.Duration) (*analytics.Report, error) {
	return m.analytics.ComputeReport(ctx, window)
}

// Advise asks the LLM for study advice grounded in the current mistakes.
func (m *Manager) Advise(ctx context.Context, window time.Duration) (string, error) {
	if m.advisor == nil {
		return "", fmt.Errorf("no dialogue backend configured")
	}
	return m.advisor.Advise(ctx, window)
}
