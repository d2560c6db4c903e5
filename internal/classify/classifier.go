// Package classify assigns a topic tag to a mistake description when the
// student didn't provide one.
package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minqi/banxue/internal/llm"
)

// Topics is the closed category set, carried over from the subject list
// the original product offered.
var Topics = []string{"数学", "物理", "英语", "语文", "化学", "地理", "生物", "其他"}

// TopicSchema constrains the classifier output to one known topic.
var TopicSchema = &llm.Schema{
	Name:        "mistake-topic",
	Description: "The subject category a homework mistake belongs to",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "The single best-fitting subject for the mistake",
				"enum":        toAny(Topics),
			},
		},
		"required":             []any{"topic"},
		"additionalProperties": false,
	},
}

const classifySystemPrompt = "你是一个作业错题分类助手。根据错题描述判断它属于哪个科目，只能从给定的科目中选择一个。"

// Config holds classifier generation parameters.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   128,
		Temperature: 0,
	}
}

// Classifier tags mistake descriptions via structured LLM output.
type Classifier struct {
	provider llm.Provider
	cfg      Config
}

// New creates a Classifier.
func New(provider llm.Provider, cfg Config) *Classifier {
	return &Classifier{provider: provider, cfg: cfg}
}

type topicOutput struct {
	Topic string `json:"topic"`
}

// Classify returns the topic tag for a mistake description.
func (c *Classifier) Classify(ctx context.Context, description string) (string, error) {
	ctx = llm.WithPurpose(ctx, "classify")

	resp, err := c.provider.Generate(ctx, llm.Request{
		System: classifySystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "错题描述：" + description},
		},
		Schema:      TopicSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("topic classification: %w", err)
	}

	var out topicOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", fmt.Errorf("parse classification response: %w", err)
	}
	return out.Topic, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
