package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage persisted state",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the pending navigation snapshot and the default-branch cache",
	Run:   runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	logger := newLogger("human")
	s := mustGetStack(logger)

	s.orchestrator.ClearCache()
	if err := s.store.Reset(); err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing state: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Cache cleared.")
}
