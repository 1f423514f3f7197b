package tree

import "github.com/fareya22/CleanCodeAAgent/internal/analysis"

// SeverityForRank buckets a single issue rank. Lower ranks are more severe.
func SeverityForRank(rank int) Severity {
	switch {
	case rank <= 2:
		return SeverityHigh
	case rank <= 5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// SeverityForIssues buckets a file by the minimum effective rank among its
// issues. An empty set is SeverityNone.
func SeverityForIssues(issues []analysis.Issue) Severity {
	if len(issues) == 0 {
		return SeverityNone
	}
	return SeverityForRank(analysis.MinRank(issues))
}

// Annotate applies per-file issue sets to the matching file nodes and then
// recomputes every directory's issue count and severity bottom-up.
//
// The pass is idempotent: all previous annotation state is reset first, so
// calling Annotate twice with the same input yields identical counts.
func Annotate(roots []*Node, issuesByPath map[string][]analysis.Issue) {
	Walk(roots, func(n *Node) {
		n.IssueCount = 0
		n.Issues = nil
		n.Severity = SeverityNone
	})

	Walk(roots, func(n *Node) {
		if n.Kind != KindFile {
			return
		}
		issues, ok := issuesByPath[n.Path]
		if !ok || len(issues) == 0 {
			return
		}
		n.Issues = issues
		n.IssueCount = len(issues)
		n.Severity = SeverityForIssues(issues)
	})

	for _, root := range roots {
		aggregate(root)
	}
}

// aggregate recomputes a directory's issue count as the sum of its
// children's counts, marking it aggregated whenever that sum is nonzero.
func aggregate(n *Node) int {
	if n.Kind == KindFile {
		return n.IssueCount
	}

	sum := 0
	for _, child := range n.Children {
		sum += aggregate(child)
	}
	n.IssueCount = sum
	if sum > 0 {
		n.Severity = SeverityAggregated
	} else {
		n.Severity = SeverityNone
	}
	return sum
}
