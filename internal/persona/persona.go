// Package persona maps a selected tutoring tone to the response-shaping
// parameters handed to the dialogue backend. The registry is static
// configuration built once at startup; changing it means restarting.
package persona

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownPersona is returned by Resolve for unregistered names.
var ErrUnknownPersona = errors.New("unknown persona")

// VoiceParams shapes speech synthesis for a persona. The synthesizer
// interprets Voice; Speed is a rate multiplier (1.0 = normal).
type VoiceParams struct {
	Voice string
	Speed float64
}

// Params is one persona's response-shaping profile.
type Params struct {
	// Name is the registry key, e.g. "strict".
	Name string

	// Instructions is the system-prompt fragment that sets the tone.
	Instructions string

	// Strictness in [0,1]; higher means a more rigorous, lower-variance
	// tutoring register.
	Strictness float64

	// MaxTurnTokens bounds a single assistant reply.
	MaxTurnTokens int

	// Voice shapes speech synthesis for this persona.
	Voice VoiceParams
}

// Registry is an immutable set of personas.
type Registry struct {
	personas map[string]Params
}

// NewRegistry builds a registry from the given params. Duplicate names error.
func NewRegistry(all ...Params) (*Registry, error) {
	m := make(map[string]Params, len(all))
	for _, p := range all {
		if _, dup := m[p.Name]; dup {
			return nil, fmt.Errorf("duplicate persona %q", p.Name)
		}
		m[p.Name] = p
	}
	return &Registry{personas: m}, nil
}

// Resolve looks up a persona by name.
func (r *Registry) Resolve(name string) (Params, error) {
	p, ok := r.personas[name]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
	}
	return p, nil
}

// Names returns the registered persona names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.personas))
	for name := range r.personas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultPersona is the registry entry used when the caller picks none.
const DefaultPersona = "encouraging"

// Default returns the built-in persona set: the strict teacher, the warm
// encouraging tutor, and the joking classmate.
func Default() *Registry {
	r, err := NewRegistry(
		Params{
			Name:          "strict",
			Instructions:  "你是一位严格的作业辅导老师。以严肃、权威的语气回答，逻辑清晰，注重细节。回复使用纯文本，尽量不使用emoji。",
			Strictness:    0.9,
			MaxTurnTokens: 2000,
			Voice:         VoiceParams{Voice: "onyx", Speed: 1.0},
		},
		Params{
			Name:          "encouraging",
			Instructions:  "你是一位贴心的作业辅导姐姐。以亲切、温暖的语气回答，语言柔和，充满鼓励。回复使用纯文本，尽量不使用emoji。",
			Strictness:    0.4,
			MaxTurnTokens: 2000,
			Voice:         VoiceParams{Voice: "nova", Speed: 1.1},
		},
		Params{
			Name:          "playful",
			Instructions:  "你是一位爱开玩笑的同学，帮同学讲解作业。以幽默、轻松的语气回答，加入适当的玩笑，但解答必须准确。回复使用纯文本，尽量不使用emoji。",
			Strictness:    0.2,
			MaxTurnTokens: 2000,
			Voice:         VoiceParams{Voice: "alloy", Speed: 1.2},
		},
	)
	if err != nil {
		// Built-in names are distinct; this cannot happen.
		panic(err)
	}
	return r
}
