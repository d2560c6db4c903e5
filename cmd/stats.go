package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the mistake distribution and practice recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, st, err := buildEngine(ctx, cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		window, _ := cmd.Flags().GetDuration("window")

		report, err := eng.Report(ctx, window)
		if err != nil {
			return err
		}

		if len(report.Distribution) == 0 {
			fmt.Println("No mistakes in the selected window.")
			return nil
		}

		topics := make([]string, 0, len(report.Distribution))
		for t := range report.Distribution {
			topics = append(topics, t)
		}
		sort.Strings(topics)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOPIC\tCOUNT")
		for _, t := range topics {
			fmt.Fprintf(w, "%s\t%d\n", t, report.Distribution[t])
		}
		w.Flush()

		if len(report.Recommendations) > 0 {
			fmt.Println("\nSuggested focus:")
			for i, r := range report.Recommendations {
				fmt.Printf("  %d. %s (%d mistakes, score %.2f)\n", i+1, r.TopicTag, r.Count, r.Score)
			}
		}

		if advise, _ := cmd.Flags().GetBool("advise"); advise {
			text, err := eng.Advise(ctx, window)
			if err != nil {
				return fmt.Errorf("advice: %w", err)
			}
			fmt.Println("\n" + text)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Duration("window", 30*24*time.Hour, "Only count mistakes newer than this (0 for all time)")
	statsCmd.Flags().Bool("advise", false, "Ask the tutor for a written study plan")
}
