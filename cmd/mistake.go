package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/minqi/banxue/internal/store"
)

var mistakeCmd = &cobra.Command{
	Use:   "mistake",
	Short: "Manage recorded mistakes",
}

var mistakeAddCmd = &cobra.Command{
	Use:   "add <assignment-id> <description>",
	Short: "Record a mistake under an assignment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		tag, _ := cmd.Flags().GetString("tag")
		image, _ := cmd.Flags().GetString("image")

		m, err := eng.AddMistake(ctx, store.AddMistakeParams{
			AssignmentID: args[0],
			Description:  args[1],
			TopicTag:     tag,
			ImageRef:     image,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Recorded mistake %s (topic: %s)\n", m.ID, displayTag(m.TopicTag))
		return nil
	},
}

var mistakeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mistakes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var f store.MistakeFilter
		f.AssignmentID, _ = cmd.Flags().GetString("assignment")
		f.TopicTag, _ = cmd.Flags().GetString("topic")

		items, err := eng.ListMistakes(ctx, f)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No mistakes recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tASSIGNMENT\tTOPIC\tDESCRIPTION")
		for _, m := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.AssignmentID, displayTag(m.TopicTag), m.Description)
		}
		return w.Flush()
	},
}

var mistakeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a mistake",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := eng.DeleteMistake(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

var mistakeTagCmd = &cobra.Command{
	Use:   "tag <id> <topic>",
	Short: "Re-tag a mistake with a topic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := eng.RetagMistake(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("Tagged", args[0], "as", args[1])
		return nil
	},
}

func displayTag(tag string) string {
	if tag == "" {
		return "(untagged)"
	}
	return tag
}

func init() {
	mistakeAddCmd.Flags().String("tag", "", "Topic tag (classified automatically when empty)")
	mistakeAddCmd.Flags().String("image", "", "Reference to a photo of the mistake")
	mistakeListCmd.Flags().String("assignment", "", "Filter by assignment id")
	mistakeListCmd.Flags().String("topic", "", "Filter by topic tag")
	mistakeCmd.AddCommand(mistakeAddCmd, mistakeListCmd, mistakeDeleteCmd, mistakeTagCmd)
}
