// Sparkd serves the quest, reflection and spark-points API.
//
// Configuration is read from ~/.config/sparkd/config.yaml (or --config) and
// SPARKD_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the server (default command)
//	sparkd
//
//	# Apply database migrations and exit
//	SPARKD_STORAGE_BACKEND=postgres SPARKD_STORAGE_POSTGRES_DSN=... sparkd migrate
//
//	# Show version information
//	sparkd version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sparkd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sparkd",
		Short: "Quest, reflection and spark-points service",
		Long: `sparkd assigns daily wellness quests, scores reflections into spark points
and lets users redeem points for rewards.

Running sparkd without a subcommand starts the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/sparkd/config.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres schema migrations and exit",
		RunE:  runMigrate,
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sparkd %s (commit %s, built %s)\n", version, gitCommit, buildDate)
		},
	})
	return root
}
