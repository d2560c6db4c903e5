package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/minqi/banxue/internal/analytics"
	"github.com/minqi/banxue/internal/classify"
	"github.com/minqi/banxue/internal/dialogue"
	"github.com/minqi/banxue/internal/engine"
	"github.com/minqi/banxue/internal/llm"
	"github.com/minqi/banxue/internal/logging"
	"github.com/minqi/banxue/internal/persona"
	"github.com/minqi/banxue/internal/store"
	"github.com/minqi/banxue/internal/voice"
)

var rootCmd = &cobra.Command{
	Use:   "banxue",
	Short: "Homework tutoring assistant",
	Long:  "Banxue — homework tutoring assistant: tutoring dialogue, mistake tracking, and learning analytics in one place.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides BANXUE_DB env var)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(voiceCmd)
	rootCmd.AddCommand(homeworkCmd)
	rootCmd.AddCommand(mistakeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then BANXUE_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	return logging.New(debug)
}

// buildEngine opens the store and wires the tutoring engine. The dialogue
// backend and voice collaborators are optional: without API keys the
// store-backed commands still work and the LLM extras report themselves
// unavailable.
func buildEngine(ctx context.Context, cmd *cobra.Command) (*engine.Manager, *store.Store, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	opts := engine.Options{
		Store:     st,
		Personas:  persona.Default(),
		Analytics: analytics.DefaultConfig(),
		Logger:    log,
	}

	provider, err := llm.NewProviderFromEnv(ctx, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Tutoring dialogue and analysis will be unavailable.")
	} else {
		opts.Generator = dialogue.NewProviderGenerator(provider)
		opts.Classifier = classify.New(provider, classify.DefaultConfig())
		opts.Advisor = analytics.NewAdvisor(analytics.New(st, analytics.DefaultConfig()), provider)
	}

	if key := voiceAPIKey(); key != "" {
		stt, sttErr := voice.NewOpenAITranscriber(key)
		tts, ttsErr := voice.NewOpenAISynthesizer(key)
		if sttErr == nil && ttsErr == nil {
			opts.Voice = voice.NewChannel(stt, tts, log)
		}
	}

	eng, err := engine.New(opts)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return eng, st, nil
}

// voiceAPIKey resolves the key for the speech collaborators. They ride on
// the OpenAI audio APIs regardless of which dialogue provider is selected.
func voiceAPIKey() string {
	if k := os.Getenv("BANXUE_OPENAI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("OPENAI_API_KEY")
}
