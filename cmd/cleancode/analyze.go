package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fareya22/CleanCodeAAgent/internal/githost"
	"github.com/fareya22/CleanCodeAAgent/internal/pipeline"
	"github.com/fareya22/CleanCodeAAgent/internal/tree"
)

var (
	analyzeFormat     string
	analyzeBranch     string
	analyzeBatch      bool
	analyzeMaxFiles   int
	analyzeSkipHealth bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <owner/repo>",
	Short: "Analyze a repository for clean-code issues",
	Long: `Fetch the repository's file tree, run each analyzable source file through
the analysis service, and print the annotated tree with a severity summary.
Results are cached per repository for the lifetime of the process.`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "human", "Output format (human, json, yaml)")
	analyzeCmd.Flags().StringVar(&analyzeBranch, "branch", "", "Branch to analyze (default: repository default branch)")
	analyzeCmd.Flags().BoolVar(&analyzeBatch, "batch", false, "Send all files in one whole-repository request")
	analyzeCmd.Flags().IntVar(&analyzeMaxFiles, "max-files", 0, "Cap on analyzable files per run (default: from config)")
	analyzeCmd.Flags().BoolVar(&analyzeSkipHealth, "skip-health", false, "Skip the analysis service health probe")
	rootCmd.AddCommand(analyzeCmd)
}

// analyzeReport is the structured output of one run
type analyzeReport struct {
	Repo     string             `json:"repo" yaml:"repo"`
	Branch   string             `json:"branch" yaml:"branch"`
	Snapshot *pipeline.Snapshot `json:"snapshot" yaml:"snapshot"`
	Summary  pipeline.Summary   `json:"summary" yaml:"summary"`
}

func runAnalyze(cmd *cobra.Command, args []string) {
	start := time.Now()
	logger := newLogger(analyzeFormat)
	s := mustGetStack(logger)
	ctx := newContext()

	if !analyzeSkipHealth {
		if err := s.analyzer.Health(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Analysis service unreachable at %s: %v\n", s.cfg.Analysis.BaseURL, err)
			os.Exit(1)
		}
	}

	ref, err := resolveRepo(ctx, s, args[0], analyzeBranch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving repository: %v\n", err)
		os.Exit(1)
	}

	human := analyzeFormat == string(FormatHuman)
	var spin *spinner.Spinner
	if human {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = fmt.Sprintf(" loading tree for %s", ref)
		spin.Start()
	}

	roots, err := s.treeBuilder.Load(ctx, ref)
	if err != nil {
		stopSpinner(spin)
		fmt.Fprintf(os.Stderr, "Error loading file tree: %v\n", err)
		os.Exit(1)
	}

	orch := s.orchestrator
	if analyzeMaxFiles > 0 {
		opts := pipeline.Options{
			Extensions:        s.cfg.Pipeline.Extensions,
			MaxFiles:          analyzeMaxFiles,
			RequestsPerMinute: s.cfg.Pipeline.RequestsPerMinute,
			MaxContentBytes:   s.cfg.Pipeline.MaxContentBytes,
		}
		orch = pipeline.New(s.fetcher, s.analyzer, opts, logger)
	}
	if spin != nil {
		orch.OnProgress = func(completed, total int, path string) {
			spin.Suffix = fmt.Sprintf(" analyzing %d/%d %s", completed, total, path)
		}
	}

	var snap *pipeline.Snapshot
	if analyzeBatch {
		snap, err = orch.RunBatch(ctx, ref, roots)
	} else {
		snap, err = orch.RunForRepository(ctx, ref, roots)
	}
	stopSpinner(spin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}

	orch.AnnotateTree(roots, snap)
	summary := pipeline.Summarize(snap)

	if !human {
		report := &analyzeReport{Repo: ref.Key(), Branch: ref.Branch, Snapshot: snap, Summary: summary}
		output, err := FormatStructured(report, OutputFormat(analyzeFormat))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(output)
		return
	}

	printAnnotatedTree(roots)
	printSummary(ref, snap, summary)
	fmt.Printf("\n(Run took %dms)\n", time.Since(start).Milliseconds())
}

func stopSpinner(spin *spinner.Spinner) {
	if spin != nil {
		spin.Stop()
	}
}

var (
	dirColor    = color.New(color.Bold)
	highColor   = color.New(color.FgRed, color.Bold)
	mediumColor = color.New(color.FgYellow)
	lowColor    = color.New(color.FgCyan)
	aggColor    = color.New(color.FgMagenta)
)

// printAnnotatedTree renders the tree with per-node counts colored by
// severity
func printAnnotatedTree(roots []*tree.Node) {
	for _, root := range roots {
		printNode(root, 0)
	}
}

func printNode(n *tree.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	label := n.Name
	if n.Kind == tree.KindDirectory {
		label = dirColor.Sprint(label + "/")
	}

	suffix := ""
	if n.IssueCount > 0 {
		suffix = " " + severityColor(n.Severity).Sprintf("[%d %s]", n.IssueCount, severityWord(n))
	}
	fmt.Printf("%s%s%s\n", indent, label, suffix)

	for _, child := range n.Children {
		printNode(child, depth+1)
	}
}

func severityColor(sev tree.Severity) *color.Color {
	switch sev {
	case tree.SeverityHigh:
		return highColor
	case tree.SeverityMedium:
		return mediumColor
	case tree.SeverityAggregated:
		return aggColor
	default:
		return lowColor
	}
}

func severityWord(n *tree.Node) string {
	if n.Kind == tree.KindDirectory {
		return "total"
	}
	return string(n.Severity)
}

func printSummary(ref *githost.RepoRef, snap *pipeline.Snapshot, summary pipeline.Summary) {
	fmt.Printf("\n%s @ %s\n", ref.Key(), ref.Branch)
	fmt.Printf("Files analyzed: %d/%d, issues: %d\n",
		snap.Totals.SucceededCount, snap.Totals.FileCount, snap.Totals.IssueCount)
	if summary.Total == 0 {
		fmt.Println("No issues found.")
		return
	}
	fmt.Printf("Severity: %s %s %s\n",
		highColor.Sprintf("high=%d", summary.High),
		mediumColor.Sprintf("medium=%d", summary.Medium),
		lowColor.Sprintf("low=%d", summary.Low))
	labels := make([]string, 0, len(summary.ByRefactoringType))
	for label := range summary.ByRefactoringType {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Printf("  %-24s %d\n", label, summary.ByRefactoringType[label])
	}
}
