package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "examprep", displayVersion(version))
	},
}

// displayVersion adds the v prefix to release versions built without it.
func displayVersion(v string) string {
	if v == "(devel)" || strings.HasPrefix(v, "v") {
		return v
	}
	if semver.IsValid("v" + v) {
		return "v" + v
	}
	return v
}

// storeKind names the store backend without leaking credentials.
func storeKind(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "mongodb"):
		return "mongodb"
	case strings.HasPrefix(dsn, "memory"):
		return "memory"
	}
	return dsn
}
