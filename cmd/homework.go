package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/minqi/banxue/internal/store"
)

var homeworkCmd = &cobra.Command{
	Use:   "homework",
	Short: "Manage homework assignments",
}

var homeworkAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Register a new assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var due *time.Time
		if s, _ := cmd.Flags().GetString("due"); s != "" {
			t, err := time.ParseInLocation("2006-01-02", s, time.Local)
			if err != nil {
				return fmt.Errorf("parse --due: %w", err)
			}
			due = &t
		}

		a, err := eng.CreateAssignment(ctx, args[0], due)
		if err != nil {
			return err
		}
		fmt.Println("Created assignment", a.ID)
		return nil
	},
}

var homeworkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var status *store.Status
		if all, _ := cmd.Flags().GetBool("all"); !all {
			active := store.StatusActive
			status = &active
		}

		items, err := eng.ListAssignments(ctx, status)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No assignments.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tDUE")
		for _, a := range items {
			due := "-"
			if a.DueDate != nil {
				due = a.DueDate.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Title, a.Status, due)
		}
		return w.Flush()
	},
}

var homeworkDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an assignment and its mistakes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := eng.DeleteAssignment(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

var homeworkArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive an assignment, keeping its mistakes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := eng.ArchiveAssignment(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("Archived", args[0])
		return nil
	},
}

var homeworkRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Archive assignments past their due date",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := eng.RefreshAssignments(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Archived %d assignment(s).\n", n)
		return nil
	},
}

func init() {
	homeworkAddCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	homeworkListCmd.Flags().Bool("all", false, "Include archived assignments")
	homeworkCmd.AddCommand(homeworkAddCmd, homeworkListCmd, homeworkArchiveCmd, homeworkDeleteCmd, homeworkRefreshCmd)
}
