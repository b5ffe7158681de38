// Package main provides the entry point for the reposcan CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgelens/reposcan/cmd/reposcan/commands"
	"github.com/forgelens/reposcan/internal/version"
)

func main() {
	exitCode := 0

	rootCmd := &cobra.Command{
		Use:   "reposcan",
		Short: "reposcan analyzes a Git repository's history, technology stack, and developer contributions",
		Long: `reposcan ingests a Git repository and produces a fixed set of analytics
documents: commit history, author rankings, technology stack, code
complexity, vulnerability findings, and evolution/coupling analysis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewAnalyzeCommand(&exitCode))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if exitCode == 0 {
			exitCode = 1
		}
	}

	os.Exit(exitCode)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "reposcan %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
