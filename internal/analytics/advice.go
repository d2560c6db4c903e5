package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/minqi/banxue/internal/llm"
	"github.com/minqi/banxue/internal/store"
)

const adviceSystemPrompt = "你是一个学习分析助手，请根据学生的错题数据分析学习情况，指出薄弱环节和常见错误类型，并给出针对性的学习建议。回复使用纯文本，尽量不使用emoji，字数控制在200字以内。"

// Advisor asks the dialogue backend for study advice grounded in the
// current mistake distribution.
type Advisor struct {
	engine   *Engine
	provider llm.Provider
}

// NewAdvisor creates an Advisor over the given engine and provider.
func NewAdvisor(engine *Engine, provider llm.Provider) *Advisor {
	return &Advisor{engine: engine, provider: provider}
}

// Advise computes a fresh report and asks the LLM for focused advice.
// Backend failures propagate verbatim; retry policy belongs to the caller.
func (a *Advisor) Advise(ctx context.Context, window time.Duration) (string, error) {
	report, err := a.engine.ComputeReport(ctx, window)
	if err != nil {
		return "", err
	}
	if len(report.Distribution) == 0 {
		return "", fmt.Errorf("no mistake records to analyze")
	}

	mistakes, err := a.engine.src.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot mistakes: %w", err)
	}

	ctx = llm.WithPurpose(ctx, "analysis")
	resp, err := a.provider.Generate(ctx, llm.Request{
		System: adviceSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildAdvicePrompt(report, mistakes)},
		},
		MaxTokens:   800,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("advice generation: %w", err)
	}
	return resp.Text(), nil
}

func buildAdvicePrompt(report *Report, mistakes []store.Mistake) string {
	var b strings.Builder

	b.WriteString("1. 错题内容（按主题分组）：\n")
	byTopic := make(map[string][]string)
	for _, m := range mistakes {
		tag := m.TopicTag
		if tag == "" {
			tag = UncategorizedTag
		}
		byTopic[tag] = append(byTopic[tag], m.Description)
	}
	topics := make([]string, 0, len(byTopic))
	for tag := range byTopic {
		topics = append(topics, tag)
	}
	sort.Strings(topics)
	for _, tag := range topics {
		for _, desc := range byTopic[tag] {
			fmt.Fprintf(&b, "%s: %s\n", tag, desc)
		}
	}

	total := 0
	for _, n := range report.Distribution {
		total += n
	}
	b.WriteString("\n2. 各主题错题占比：\n")
	for _, tag := range topics {
		n := report.Distribution[tag]
		fmt.Fprintf(&b, "%s: %.1f%%\n", tag, float64(n)/float64(total)*100)
	}

	b.WriteString("\n3. 当前建议优先复习的主题（按严重度排序）：\n")
	for i, rec := range report.Recommendations {
		fmt.Fprintf(&b, "%d. %s（%d 题）\n", i+1, rec.TopicTag, rec.Count)
	}

	return b.String()
}
