package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/logging"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load subjects, topics and questions from a bank file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		svc, err := open(cmd.Context(), cfg, logging.New(nil, cfg.LogLevel))
		if err != nil {
			return err
		}
		defer svc.Close()

		res, err := svc.bank.Import(cmd.Context(), f)
		if err != nil {
			return fmt.Errorf("import %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %d subjects, %d topics, %d questions into %s\n",
			res.Subjects, res.Topics, res.Questions, storeKind(cfg.DB))
		if len(res.Skipped) > 0 {
			fmt.Fprintf(out, "Skipped %d questions:\n", len(res.Skipped))
			for _, s := range res.Skipped {
				fmt.Fprintln(out, "  "+s)
			}
		}
		return nil
	},
}
