package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minqi/banxue/internal/persona"
	"github.com/minqi/banxue/internal/voice"
)

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Run one voice turn from a captured audio file",
	Long:  "Transcribes the input audio, runs it through a tutoring session like a text turn, and writes the synthesized reply. Capture happens outside banxue; this command only consumes audio bytes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		inPath, _ := cmd.Flags().GetString("in")
		outPath, _ := cmd.Flags().GetString("out")

		audio, err := os.ReadFile(inPath)
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}

		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		personaName, _ := cmd.Flags().GetString("persona")
		sessionID, err := eng.CreateSession(personaName)
		if err != nil {
			return err
		}
		defer eng.CloseSession(sessionID)

		result, err := eng.SendVoice(ctx, sessionID, audio)

		var synthErr *voice.ErrSynthesisFailed
		switch {
		case err == nil:
		case errors.As(err, &synthErr):
			// Text is authoritative; audio was best-effort.
			fmt.Fprintln(os.Stderr, "synthesis failed, text reply only:", synthErr.Err)
		default:
			return err
		}

		fmt.Println("You said:", result.Transcript)
		fmt.Println("Reply:", result.Turn.Content)

		if len(result.Audio) > 0 && outPath != "" {
			if err := os.WriteFile(outPath, result.Audio, 0o644); err != nil {
				return fmt.Errorf("write reply audio: %w", err)
			}
			fmt.Println("Reply audio written to", outPath)
		}
		return nil
	},
}

func init() {
	voiceCmd.Flags().String("in", "", "Captured audio file (wav/mp3)")
	voiceCmd.Flags().String("out", "reply.mp3", "Where to write the synthesized reply")
	voiceCmd.Flags().String("persona", persona.DefaultPersona, "Tutoring persona (strict, encouraging, playful)")
	voiceCmd.MarkFlagRequired("in")
}
