package llm

import "testing"

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BANXUE_LLM_PROVIDER",
		"BANXUE_ANTHROPIC_API_KEY", "BANXUE_OPENAI_API_KEY",
		"BANXUE_GEMINI_API_KEY", "BANXUE_OPENROUTER_API_KEY",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY",
		"GEMINI_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("BANXUE_LLM_PROVIDER", "anthropic")
	t.Setenv("BANXUE_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("BANXUE_ANTHROPIC_MODEL", "claude-sonnet")

	cfg := ConfigFromEnv()
	if cfg.Provider != "anthropic" {
		t.Fatalf("provider: %q", cfg.Provider)
	}
	if cfg.Anthropic.APIKey != "sk-test" || cfg.Anthropic.Model != "claude-sonnet" {
		t.Fatalf("anthropic config: %+v", cfg.Anthropic)
	}
	// Untouched sections keep their defaults.
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("openai default lost: %q", cfg.OpenAI.Model)
	}
}

func TestDiscoverConfig_PriorityOrder(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic")

	cfg, ok := DiscoverConfig()
	if !ok {
		t.Fatal("expected discovery to succeed")
	}
	if cfg.Provider != "openai" {
		t.Fatalf("openai key should win, got %q", cfg.Provider)
	}
}

func TestDiscoverConfig_NoKeys(t *testing.T) {
	clearProviderEnv(t)
	if _, ok := DiscoverConfig(); ok {
		t.Fatal("expected discovery to fail with no keys")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "openai"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing-key error")
	}

	cfg.OpenAI.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Provider = "mock"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("mock needs no key: %v", err)
	}

	cfg.Provider = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown-provider error")
	}
}
