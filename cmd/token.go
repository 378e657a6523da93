package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/config"
	"github.com/abhisek/examprep/internal/identity"
)

var tokenCmd = &cobra.Command{
	Use:   "token STUDENT_ID",
	Short: "Sign an API bearer token for a student (development use)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		tok, err := identity.NewJWTVerifier(cfg.HTTP.JWTSecret).
			Sign(identity.Identity{StudentID: args[0], DisplayName: name}, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("name", "", "Display name carried in the token")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
