package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/logging"
	"github.com/abhisek/examprep/internal/question"
)

var statsCmd = &cobra.Command{
	Use:   "stats TEST_ID",
	Short: "Show the recorded statistics of a test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		svc, err := open(cmd.Context(), cfg, logging.Discard())
		if err != nil {
			return err
		}
		defer svc.Close()

		ta, err := svc.analytics.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load statistics: %w", err)
		}
		out := cmd.OutOrStdout()
		if ta == nil {
			fmt.Fprintf(out, "No attempts recorded for %s.\n", args[0])
			return nil
		}

		fmt.Fprintln(out, args[0])
		fmt.Fprintln(out, strings.Repeat("─", 40))
		fmt.Fprintf(out, "%-20s %d\n", "Attempts", ta.NumberOfAttempts)
		fmt.Fprintf(out, "%-20s %.2f\n", "Average score", ta.AverageScore)
		fmt.Fprintf(out, "%-20s %.1f min\n", "Average time", ta.AverageTimeTaken)
		fmt.Fprintf(out, "%-20s %s (%s)\n", "Top score", question.FormatNumber(ta.TopperScore), ta.TopperStudentName)
		fmt.Fprintf(out, "%-20s %s\n", "Updated", ta.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}
