package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/logging"
	"github.com/abhisek/examprep/internal/question"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard TEST_ID",
	Short: "List the best attempts at a test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		svc, err := open(cmd.Context(), cfg, logging.Discard())
		if err != nil {
			return err
		}
		defer svc.Close()

		attempts, err := svc.analytics.Leaderboard(cmd.Context(), args[0], limit)
		if err != nil {
			return fmt.Errorf("load leaderboard: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(attempts) == 0 {
			fmt.Fprintf(out, "No attempts recorded for %s.\n", args[0])
			return nil
		}

		fmt.Fprintf(out, "%-4s  %-24s  %8s  %8s  %s\n", "#", "Student", "Score", "Minutes", "Submitted")
		fmt.Fprintln(out, strings.Repeat("─", 72))
		for i, a := range attempts {
			name := a.StudentName
			if name == "" {
				name = a.StudentID
			}
			fmt.Fprintf(out, "%-4d  %-24s  %8s  %8.1f  %s\n", i+1, name,
				question.FormatNumber(a.Score), a.TimeTakenMinutes,
				a.SubmittedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().Int("limit", 10, "Number of attempts to show; 0 shows all")
}
