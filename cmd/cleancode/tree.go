package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fareya22/CleanCodeAAgent/internal/tree"
)

var (
	treeFormat string
	treeBranch string
)

var treeCmd = &cobra.Command{
	Use:   "tree <owner/repo>",
	Short: "Print a repository's file tree without analyzing it",
	Args:  cobra.ExactArgs(1),
	Run:   runTree,
}

func init() {
	treeCmd.Flags().StringVar(&treeFormat, "format", "human", "Output format (human, json, yaml)")
	treeCmd.Flags().StringVar(&treeBranch, "branch", "", "Branch to list (default: repository default branch)")
	rootCmd.AddCommand(treeCmd)
}

// treeReport is the structured output of a tree listing
type treeReport struct {
	Repo   string   `json:"repo" yaml:"repo"`
	Branch string   `json:"branch" yaml:"branch"`
	Files  []string `json:"files" yaml:"files"`
}

func runTree(cmd *cobra.Command, args []string) {
	logger := newLogger(treeFormat)
	s := mustGetStack(logger)
	ctx := newContext()

	ref, err := resolveRepo(ctx, s, args[0], treeBranch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving repository: %v\n", err)
		os.Exit(1)
	}

	roots, err := s.treeBuilder.Load(ctx, ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading file tree: %v\n", err)
		os.Exit(1)
	}

	if treeFormat != string(FormatHuman) {
		var files []string
		for _, f := range tree.Files(roots) {
			files = append(files, f.Path)
		}
		report := &treeReport{Repo: ref.Key(), Branch: ref.Branch, Files: files}
		output, err := FormatStructured(report, OutputFormat(treeFormat))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(output)
		return
	}

	printAnnotatedTree(roots)
}
