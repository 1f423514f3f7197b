package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fareya22/CleanCodeAAgent/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.json to the config directory",
	Run:   runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run:   runConfigShow,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	dir := stateDir()
	cfg := config.DefaultConfig()
	if err := cfg.Save(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default configuration to %s/config.json\n", dir)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	logger := newLogger("human")
	dir := stateDir()
	cfg, err := config.Load(dir)
	if err != nil {
		logger.Warn("Failed to load config, showing defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}

	output, err := FormatStructured(cfg, FormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
