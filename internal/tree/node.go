package tree

import (
	"strings"

	"github.com/fareya22/CleanCodeAAgent/internal/analysis"
)

// Kind distinguishes file and directory nodes
type Kind string

const (
	// KindFile is a blob entry
	KindFile Kind = "file"
	// KindDirectory is a tree entry
	KindDirectory Kind = "directory"
)

// Severity is the issue severity bucket attached to a node
type Severity string

const (
	// SeverityNone means the node has no issues
	SeverityNone Severity = "none"
	// SeverityLow is the bucket for issues ranked worse than 5
	SeverityLow Severity = "low"
	// SeverityMedium is the bucket for issues ranked 3..5
	SeverityMedium Severity = "medium"
	// SeverityHigh is the bucket for issues ranked 1..2
	SeverityHigh Severity = "high"
	// SeverityAggregated marks directories whose subtree contains issues
	SeverityAggregated Severity = "aggregated"
)

// Node is one file or directory entry in the repository hierarchy.
// Path is the primary key; every non-root node's path is exactly its
// parent's path + "/" + its name.
type Node struct {
	Path        string           `json:"path"`
	Name        string           `json:"name"`
	Kind        Kind             `json:"kind"`
	ContentHash string           `json:"contentHash,omitempty"`
	ByteSize    int64            `json:"byteSize,omitempty"`
	SourceURL   string           `json:"sourceUrl,omitempty"`
	IssueCount  int              `json:"issueCount"`
	Severity    Severity         `json:"severity"`
	Issues      []analysis.Issue `json:"issues,omitempty"`
	Children    []*Node          `json:"children,omitempty"`
}

// BaseName returns the last segment of a slash-separated path
func BaseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// ParentPath returns the directory portion of a slash-separated path,
// or "" for a root-level entry
func ParentPath(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return ""
}

// Depth returns the number of path separators, i.e. how many directories
// deep the entry sits
func Depth(path string) int {
	return strings.Count(path, "/")
}

// Files returns all file nodes under roots in depth-first order,
// preserving sibling order
func Files(roots []*Node) []*Node {
	var files []*Node
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Kind == KindFile {
				files = append(files, n)
				continue
			}
			walk(n.Children)
		}
	}
	walk(roots)
	return files
}

// Walk visits every node under roots in depth-first order
func Walk(roots []*Node, visit func(*Node)) {
	for _, n := range roots {
		visit(n)
		Walk(n.Children, visit)
	}
}
