// Package cli provides the command-line interface for rss_autogen_giscus.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	dryRun       bool
	lookbackDays int
)

var rootCmd = &cobra.Command{
	Use:   "rss_autogen_giscus",
	Short: "Create GitHub Discussions for new posts in a website feed",
	Long: "rss_autogen_giscus reads a website's RSS or Atom feed and creates one GitHub Discussion per recent post, " +
		"titled with the post's URL path so Giscus can map comments to the page. Configuration comes from the environment.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          syncAction,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rss_autogen_giscus %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the discussions that would be created without creating them (overrides DRY_RUN)")
	rootCmd.Flags().IntVar(&lookbackDays, "lookback-days", 0, "only sync posts from the last N days, 0 for no limit (overrides LOOKBACK_DAYS)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
