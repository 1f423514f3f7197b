package analysis

import "strings"

// RankSentinel is the rank assigned to issues the service left unranked.
// Display layers may render it as "N/A"; it is never stored as a string.
const RankSentinel = 999

// Issue represents a single design-quality finding reported by the analysis
// service. Issues are immutable once received. The JSON tags match the
// service's wire format.
type Issue struct {
	OwnerClass        string `json:"Class name"`
	OwnerFunction     string `json:"Function name"`
	FunctionSignature string `json:"Function signature"`
	RefactoringType   string `json:"refactoring_type"`
	Rationale         string `json:"rationale"`
	Rank              int    `json:"rank,omitempty"`
	SourceLine        int    `json:"line,omitempty"`
	JumpURL           string `json:"github_url,omitempty"`
	IssueType         string `json:"issue_type,omitempty"`
}

// EffectiveRank returns the issue's rank, substituting the sentinel for
// unranked issues so that lower always means more severe.
func (i Issue) EffectiveRank() int {
	if i.Rank <= 0 {
		return RankSentinel
	}
	return i.Rank
}

// DerivedIssueType returns the issue's type label, computing it from the
// refactoring type and rationale when the service did not supply one.
func (i Issue) DerivedIssueType() string {
	if i.IssueType != "" {
		return i.IssueType
	}
	return classifyIssue(i.RefactoringType, i.Rationale)
}

// classifyIssue maps refactoring type and rationale text to a stable label.
// The table is deterministic: first match wins, in declaration order.
var issueRules = []struct {
	keyword string
	label   string
}{
	{"extract method", "long method"},
	{"extract function", "long method"},
	{"extract class", "god class"},
	{"extract interface", "god class"},
	{"move method", "feature envy"},
	{"move field", "feature envy"},
	{"rename", "poor naming"},
	{"duplicate", "duplicate code"},
	{"inline", "needless indirection"},
	{"parameter", "long parameter list"},
}

func classifyIssue(refactoringType, rationale string) string {
	rt := strings.ToLower(refactoringType)
	for _, rule := range issueRules {
		if strings.Contains(rt, rule.keyword) {
			return rule.label
		}
	}

	text := strings.ToLower(rationale)
	for _, rule := range issueRules {
		if strings.Contains(text, rule.keyword) {
			return rule.label
		}
	}

	return "code smell"
}

// MinRank returns the minimum effective rank across issues, or RankSentinel
// for an empty set.
func MinRank(issues []Issue) int {
	min := RankSentinel
	for _, issue := range issues {
		if r := issue.EffectiveRank(); r < min {
			min = r
		}
	}
	return min
}
