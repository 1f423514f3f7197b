package tree

import (
	"testing"

	"github.com/fareya22/CleanCodeAAgent/internal/analysis"
)

func file(path string) *Node {
	return &Node{Path: path, Name: BaseName(path), Kind: KindFile}
}

func dir(path string) *Node {
	return &Node{Path: path, Name: BaseName(path), Kind: KindDirectory}
}

func TestBuildHierarchy(t *testing.T) {
	// Deliberately unordered: children before parents, mixed depths
	entries := []*Node{
		file("src/main/App.java"),
		dir("src"),
		file("README.md"),
		dir("src/main"),
		file("src/Util.java"),
	}

	roots := Build(entries)

	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}

	paths := map[string]bool{}
	Walk(roots, func(n *Node) {
		if paths[n.Path] {
			t.Errorf("duplicate path %q in built tree", n.Path)
		}
		paths[n.Path] = true

		for _, child := range n.Children {
			want := n.Path + "/" + child.Name
			if child.Path != want {
				t.Errorf("child path = %q, want parent path + / + name = %q", child.Path, want)
			}
		}
	})

	for _, p := range []string{"src", "src/main", "src/main/App.java", "src/Util.java", "README.md"} {
		if !paths[p] {
			t.Errorf("built tree is missing %q", p)
		}
	}
}

func TestBuildSynthesizesMissingDirectories(t *testing.T) {
	// Provider listed only blobs; intermediate directories must appear
	roots := Build([]*Node{file("a/b/c.java")})

	if len(roots) != 1 || roots[0].Path != "a" || roots[0].Kind != KindDirectory {
		t.Fatalf("expected synthesized root directory 'a', got %+v", roots[0])
	}
	b := roots[0].Children[0]
	if b.Path != "a/b" || b.Kind != KindDirectory {
		t.Fatalf("expected synthesized 'a/b', got %+v", b)
	}
	if b.Children[0].Path != "a/b/c.java" {
		t.Errorf("leaf path = %q, want a/b/c.java", b.Children[0].Path)
	}
}

func TestBuildDropsDuplicatePaths(t *testing.T) {
	roots := Build([]*Node{file("x.java"), file("x.java")})

	count := 0
	Walk(roots, func(n *Node) { count++ })
	if count != 1 {
		t.Errorf("got %d nodes, want 1 after dedupe", count)
	}
}

func TestSeverityForRank(t *testing.T) {
	cases := []struct {
		rank int
		want Severity
	}{
		{1, SeverityHigh},
		{2, SeverityHigh},
		{3, SeverityMedium},
		{5, SeverityMedium},
		{6, SeverityLow},
		{7, SeverityLow},
		{analysis.RankSentinel, SeverityLow},
	}
	for _, tc := range cases {
		if got := SeverityForRank(tc.rank); got != tc.want {
			t.Errorf("SeverityForRank(%d) = %s, want %s", tc.rank, got, tc.want)
		}
	}
}

func TestSeverityForIssuesUsesMinRank(t *testing.T) {
	issues := []analysis.Issue{{Rank: 6}, {Rank: 1}}
	if got := SeverityForIssues(issues); got != SeverityHigh {
		t.Errorf("severity = %s, want high (min rank 1)", got)
	}

	// Unranked issues bucket as low via the sentinel
	if got := SeverityForIssues([]analysis.Issue{{}}); got != SeverityLow {
		t.Errorf("severity of unranked issue = %s, want low", got)
	}
}

func TestAnnotate(t *testing.T) {
	roots := Build([]*Node{
		dir("src"),
		file("src/a.java"),
		file("src/b.java"),
		file("README.md"),
	})

	issues := map[string][]analysis.Issue{
		"src/a.java": {{Rank: 1}, {Rank: 6}},
	}

	Annotate(roots, issues)

	var a, b, src, readme *Node
	Walk(roots, func(n *Node) {
		switch n.Path {
		case "src/a.java":
			a = n
		case "src/b.java":
			b = n
		case "src":
			src = n
		case "README.md":
			readme = n
		}
	})

	if a.IssueCount != 2 || a.Severity != SeverityHigh {
		t.Errorf("a.java: count=%d severity=%s, want 2/high", a.IssueCount, a.Severity)
	}
	if b.IssueCount != 0 || b.Severity != SeverityNone {
		t.Errorf("b.java: count=%d severity=%s, want 0/none", b.IssueCount, b.Severity)
	}
	if src.IssueCount != 2 || src.Severity != SeverityAggregated {
		t.Errorf("src: count=%d severity=%s, want 2/aggregated", src.IssueCount, src.Severity)
	}
	if readme.IssueCount != 0 || readme.Severity != SeverityNone {
		t.Errorf("README.md: count=%d severity=%s, want 0/none", readme.IssueCount, readme.Severity)
	}
}

func TestAnnotateDirectorySumInvariant(t *testing.T) {
	roots := Build([]*Node{
		file("a/x.java"),
		file("a/b/y.java"),
		file("a/b/z.java"),
	})

	Annotate(roots, map[string][]analysis.Issue{
		"a/x.java":   {{Rank: 3}},
		"a/b/y.java": {{Rank: 7}, {Rank: 2}},
	})

	Walk(roots, func(n *Node) {
		if n.Kind != KindDirectory {
			return
		}
		sum := 0
		for _, child := range n.Children {
			sum += child.IssueCount
		}
		if n.IssueCount != sum {
			t.Errorf("%s: issueCount=%d, want sum of children %d", n.Path, n.IssueCount, sum)
		}
	})
}

func TestAnnotateIsIdempotent(t *testing.T) {
	roots := Build([]*Node{file("a/x.java"), file("a/y.java")})
	issues := map[string][]analysis.Issue{"a/x.java": {{Rank: 4}}}

	Annotate(roots, issues)
	first := map[string]int{}
	Walk(roots, func(n *Node) { first[n.Path] = n.IssueCount })

	Annotate(roots, issues)
	Walk(roots, func(n *Node) {
		if n.IssueCount != first[n.Path] {
			t.Errorf("%s: count changed on second annotate: %d != %d", n.Path, n.IssueCount, first[n.Path])
		}
	})
}

func TestFilesOrder(t *testing.T) {
	roots := Build([]*Node{
		dir("src"),
		file("src/a.java"),
		file("src/b.java"),
		file("README.md"),
	})

	files := Files(roots)
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3", len(files))
	}
	// Depth-first over root order: src's children first, then README.md
	want := []string{"src/a.java", "src/b.java", "README.md"}
	for i, f := range files {
		if f.Path != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, f.Path, want[i])
		}
	}
}
