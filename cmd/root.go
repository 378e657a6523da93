package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "examprep",
	Short: "Timed practice exams in the terminal",
	Long: "examprep draws a practice test from a question bank, times it, scores it\n" +
		"with negative marking and keeps per-test statistics and a leaderboard.",
	SilenceUsage: true,
	RunE:         runPractice,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Document store: SQLite path, memory://, or mongodb:// URI (overrides EXAMPREP_DB)")
	pf.String("env-file", "", "Read settings from this .env file (default .env when present)")

	addPracticeFlags(rootCmd)

	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads settings, then applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DB = db
	}
	return cfg, cfg.Validate()
}
