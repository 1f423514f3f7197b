package main

import (
	"github.com/spf13/cobra"

	"github.com/fareya22/CleanCodeAAgent/internal/version"
)

var (
	// configDirFlag overrides the state/config directory
	configDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "cleancode",
	Short: "Clean-code analysis for remote repositories",
	Long: `cleancode fetches a repository's file tree, runs each source file through
a remote clean-code analysis service, and reports design-quality issues
per file with severity derived from issue rank.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("cleancode version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "",
		"Directory holding config.json and state.db (default: ~/.cleancode)")
}
