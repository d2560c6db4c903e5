package voice

import (
	"context"
	"sync"

	"github.com/minqi/banxue/internal/persona"
)

// MockTranscriber is a deterministic Transcriber for testing.
type MockTranscriber struct {
	mu    sync.Mutex
	Text  string
	Err   error
	Calls [][]byte
}

func (m *MockTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, audio)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// MockSynthesizer is a deterministic Synthesizer for testing.
type MockSynthesizer struct {
	mu    sync.Mutex
	Audio []byte
	Err   error
	Texts []string
}

func (m *MockSynthesizer) Synthesize(_ context.Context, text string, _ persona.VoiceParams) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Audio, nil
}
