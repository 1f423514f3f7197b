package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/fareya22/CleanCodeAAgent/internal/analysis"
)

// PerFile is the outcome of analyzing one file. OK distinguishes "analyzed
// clean" from "failed"; a failed entry always has an empty issue set.
type PerFile struct {
	Path    string           `json:"path" yaml:"path"`
	Issues  []analysis.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
	Summary string           `json:"summaryText,omitempty" yaml:"summaryText,omitempty"`
	OK      bool             `json:"ok" yaml:"ok"`
}

// Totals are the finalized counters of a run, computed only after the last
// per-file entry is appended
type Totals struct {
	FileCount      int `json:"fileCount" yaml:"fileCount"`
	SucceededCount int `json:"succeededCount" yaml:"succeededCount"`
	IssueCount     int `json:"issueCount" yaml:"issueCount"`
}

// Snapshot is the complete result of one analysis run over one repository.
// PerFile entries are appended in file-list order during the run; the
// snapshot is finalized once, when the run ends.
type Snapshot struct {
	ID        string    `json:"id" yaml:"id"`
	RepoKey   string    `json:"repoKey" yaml:"repoKey"`
	Branch    string    `json:"branch,omitempty" yaml:"branch,omitempty"`
	PerFile   []PerFile `json:"perFile" yaml:"perFile"`
	Totals    Totals    `json:"totals" yaml:"totals"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

func newSnapshot(repoKey, branch string) *Snapshot {
	return &Snapshot{
		ID:        uuid.New().String(),
		RepoKey:   repoKey,
		Branch:    branch,
		CreatedAt: time.Now().UTC(),
	}
}

// append records one completed file, success or failure
func (s *Snapshot) append(entry PerFile) {
	s.PerFile = append(s.PerFile, entry)
}

// finalize computes the totals over all appended entries
func (s *Snapshot) finalize() {
	totals := Totals{FileCount: len(s.PerFile)}
	for _, pf := range s.PerFile {
		if pf.OK {
			totals.SucceededCount++
		}
		totals.IssueCount += len(pf.Issues)
	}
	s.Totals = totals
}

// IssuesByPath returns the per-path issue sets for tree annotation
func (s *Snapshot) IssuesByPath() map[string][]analysis.Issue {
	byPath := make(map[string][]analysis.Issue, len(s.PerFile))
	for _, pf := range s.PerFile {
		if len(pf.Issues) > 0 {
			byPath[pf.Path] = pf.Issues
		}
	}
	return byPath
}
