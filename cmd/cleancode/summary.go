package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fareya22/CleanCodeAAgent/internal/pipeline"
)

var summaryFormat string

var summaryCmd = &cobra.Command{
	Use:   "summary <snapshot.json>",
	Short: "Aggregate issue counts from a saved analysis snapshot",
	Long:  "Reads a snapshot previously exported with 'analyze --format json' and prints its severity and issue-type breakdown.",
	Args:  cobra.ExactArgs(1),
	Run:   runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading snapshot: %v\n", err)
		os.Exit(1)
	}

	// Accept both a bare snapshot and a full analyze report
	var report analyzeReport
	if err := json.Unmarshal(data, &report); err != nil || report.Snapshot == nil {
		var snap pipeline.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing snapshot: %v\n", err)
			os.Exit(1)
		}
		report = analyzeReport{Repo: snap.RepoKey, Branch: snap.Branch, Snapshot: &snap}
	}

	summary := pipeline.Summarize(report.Snapshot)

	if summaryFormat != string(FormatHuman) {
		output, err := FormatStructured(summary, OutputFormat(summaryFormat))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(output)
		return
	}

	fmt.Printf("%s @ %s\n", report.Repo, report.Branch)
	fmt.Printf("Issues: %d (high=%d medium=%d low=%d)\n",
		summary.Total, summary.High, summary.Medium, summary.Low)
	labels := make([]string, 0, len(summary.ByRefactoringType))
	for label := range summary.ByRefactoringType {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Printf("  %-24s %d\n", label, summary.ByRefactoringType[label])
	}
}
