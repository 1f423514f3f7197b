package pipeline

import (
	"github.com/fareya22/CleanCodeAAgent/internal/tree"
)

// UnknownRefactoringType buckets issues the service left unlabeled
const UnknownRefactoringType = "unknown"

// Summary is a pure aggregation over all issues in a snapshot
type Summary struct {
	Total             int            `json:"total" yaml:"total"`
	High              int            `json:"high" yaml:"high"`
	Medium            int            `json:"medium" yaml:"medium"`
	Low               int            `json:"low" yaml:"low"`
	ByRefactoringType map[string]int `json:"byRefactoringType" yaml:"byRefactoringType"`
}

// Summarize buckets every issue across all per-file entries by the same
// rank thresholds used for tree annotation, and counts issues per
// refactoring-type label
func Summarize(snap *Snapshot) Summary {
	summary := Summary{ByRefactoringType: make(map[string]int)}

	for _, pf := range snap.PerFile {
		for _, issue := range pf.Issues {
			summary.Total++
			switch tree.SeverityForRank(issue.EffectiveRank()) {
			case tree.SeverityHigh:
				summary.High++
			case tree.SeverityMedium:
				summary.Medium++
			default:
				summary.Low++
			}

			label := issue.RefactoringType
			if label == "" {
				label = UnknownRefactoringType
			}
			summary.ByRefactoringType[label]++
		}
	}

	return summary
}

// Summarize is the orchestrator-level view of the package function
func (o *Orchestrator) Summarize(snap *Snapshot) Summary {
	return Summarize(snap)
}
