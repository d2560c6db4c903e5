package dialogue

import (
	"context"

	"github.com/minqi/banxue/internal/llm"
	"github.com/minqi/banxue/internal/persona"
)

// Generator is the narrow contract with the dialogue-generation
// collaborator: full ordered history in, one assistant reply out.
type Generator interface {
	Generate(ctx context.Context, history []Turn, p persona.Params) (string, error)
}

// ProviderGenerator adapts an llm.Provider to the Generator contract.
type ProviderGenerator struct {
	provider llm.Provider
}

// NewProviderGenerator wraps an llm.Provider for dialogue use.
func NewProviderGenerator(p llm.Provider) *ProviderGenerator {
	return &ProviderGenerator{provider: p}
}

func (g *ProviderGenerator) Generate(ctx context.Context, history []Turn, p persona.Params) (string, error) {
	ctx = llm.WithPurpose(ctx, "dialogue")

	messages := make([]llm.Message, len(history))
	for i, t := range history {
		role := llm.RoleUser
		if t.Speaker == SpeakerAssistant {
			role = llm.RoleAssistant
		}
		messages[i] = llm.Message{Role: role, Content: t.Content}
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      p.Instructions,
		Messages:    messages,
		MaxTokens:   p.MaxTurnTokens,
		Temperature: temperatureFor(p),
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// temperatureFor maps strictness to sampling temperature: a strict persona
// answers with low variance, a playful one with more.
func temperatureFor(p persona.Params) float64 {
	return 0.2 + 0.6*(1-p.Strictness)
}
