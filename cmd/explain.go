package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/explain"
	"github.com/abhisek/examprep/internal/identity"
	"github.com/abhisek/examprep/internal/logging"
)

var explainCmd = &cobra.Command{
	Use:   "explain ATTEMPT_ID",
	Short: "Explain the wrong answers of one of your recorded attempts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		svc, err := open(cmd.Context(), cfg, logging.New(nil, cfg.LogLevel))
		if err != nil {
			return err
		}
		defer svc.Close()

		if svc.explainer == nil {
			return fmt.Errorf("%w: set EXAMPREP_LLM_PROVIDER and an API key", explain.ErrDisabled)
		}
		student := identity.Local(cfg.StudentID, cfg.StudentName)
		exps, err := svc.explainer.ForAttempt(cmd.Context(), args[0], student.StudentID)
		if errors.Is(err, explain.ErrAttemptNotFound) {
			return fmt.Errorf("no attempt %s recorded for %s", args[0], student.StudentID)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(exps) == 0 {
			fmt.Fprintln(out, "Nothing to explain: no incorrect answers.")
			return nil
		}
		for i, e := range exps {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s  your answer: %s  correct: %s\n", e.QuestionID, e.Given, e.Correct)
			if e.Error != "" {
				fmt.Fprintln(out, "  unavailable:", e.Error)
				continue
			}
			fmt.Fprintln(out, "  "+e.Text)
			for n, step := range e.Steps {
				fmt.Fprintf(out, "  %d. %s\n", n+1, step)
			}
			if e.Misconception != "" {
				fmt.Fprintln(out, "  Watch out:", e.Misconception)
			}
		}
		return nil
	},
}
