package model

import "sort"

// Failure is a diagram that is still invalid after the repair pass.
type Failure struct {
	File       string `json:"file"`
	BlockIndex int    `json:"block_index"`
	Line       int    `json:"line"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail"`
}

// Repair records a diagram that was fixed by the repair pass.
type Repair struct {
	File       string   `json:"file"`
	BlockIndex int      `json:"block_index"`
	Line       int      `json:"line"`
	Reason     string   `json:"reason"`
	Fixes      []string `json:"fixes"`
}

// FileIssue is a problem with a whole file: unreadable, unwritable, or with
// an unmatched code fence. It is not a diagram failure.
type FileIssue struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// LinkFailure is a markdown link whose target could not be reached.
type LinkFailure struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	URL      string `json:"url"`
	External bool   `json:"external"`
	Error    string `json:"error"`
}

// LinkSummary aggregates a link check.
type LinkSummary struct {
	Checked  int           `json:"checked"`
	Passed   int           `json:"passed"`
	Skipped  int           `json:"skipped"`
	Failures []LinkFailure `json:"failures"`
}

// FileDiff is the unified diff a write-back would apply to one document.
type FileDiff struct {
	File string `json:"file"`
	Diff string `json:"diff"`
}

// Report holds the results of a batch run for display.
type Report struct {
	Files int `json:"files"`
	Total int `json:"total"`
	// Validated counts diagrams that are valid at the end of the run,
	// repaired ones included.
	Validated int `json:"validated"`
	Failed    int `json:"failed"`
	Repaired  int `json:"repaired"`
	// Written lists documents whose repaired diagrams were saved.
	Written        []string       `json:"written,omitempty"`
	Diffs          []FileDiff     `json:"diffs,omitempty"`
	DiagramsByFile map[string]int `json:"diagrams_by_file"`
	Failures       []Failure      `json:"failures"`
	Repairs        []Repair       `json:"repairs,omitempty"`
	Issues         []FileIssue    `json:"issues,omitempty"`
	Links          *LinkSummary   `json:"links,omitempty"`
}

// OK reports whether every diagram ended up valid. With strict, file issues
// and broken links count as well.
func (r *Report) OK(strict bool) bool {
	if r.Failed > 0 {
		return false
	}
	if !strict {
		return true
	}
	if len(r.Issues) > 0 {
		return false
	}
	return r.Links == nil || len(r.Links.Failures) == 0
}

// Sort orders every list by source position so output is stable regardless
// of the order in which files were processed.
func (r *Report) Sort() {
	sort.Slice(r.Failures, func(i, j int) bool {
		a, b := r.Failures[i], r.Failures[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.BlockIndex < b.BlockIndex
	})
	sort.Slice(r.Repairs, func(i, j int) bool {
		a, b := r.Repairs[i], r.Repairs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.BlockIndex < b.BlockIndex
	})
	sort.SliceStable(r.Issues, func(i, j int) bool {
		return r.Issues[i].File < r.Issues[j].File
	})
	sort.Strings(r.Written)
	sort.Slice(r.Diffs, func(i, j int) bool {
		return r.Diffs[i].File < r.Diffs[j].File
	})
	if r.Links != nil {
		sort.Slice(r.Links.Failures, func(i, j int) bool {
			a, b := r.Links.Failures[i], r.Links.Failures[j]
			if a.File != b.File {
				return a.File < b.File
			}
			return a.Line < b.Line
		})
	}
}

// Summary holds the results of a history operation for display.
type Summary struct {
	Restored []string
	Failed   []string
	Message  string
}
