package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minqi/banxue/internal/dialogue"
	"github.com/minqi/banxue/internal/persona"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring conversation",
	Long:  "Opens a dialogue session under the selected persona and reads questions from stdin. Type 'exit' to close the session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

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

		fmt.Printf("Persona %q, session %s. Ask away (exit to quit).\n", personaName, sessionID[:8])

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if text == "exit" {
				break
			}

			turn, err := eng.SendText(ctx, sessionID, text)
			if err != nil {
				var genErr *dialogue.ErrGenerationFailed
				if errors.As(err, &genErr) {
					fmt.Fprintln(os.Stderr, "generation failed, your question is kept, try again:", genErr.Err)
					continue
				}
				return err
			}
			fmt.Printf("[%d] %s\n", turn.Seq, turn.Content)
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().String("persona", persona.DefaultPersona, "Tutoring persona (strict, encouraging, playful)")
}
