package patcher

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
)

// Replacement swaps the bytes doc[Start:End] for Text.
type Replacement struct {
	Start int
	End   int
	Text  string
}

// Apply returns doc with every replacement applied. Replacements may come in
// any order but must not overlap.
func Apply(doc []byte, replacements []Replacement) ([]byte, error) {
	if len(replacements) == 0 {
		return doc, nil
	}

	sorted := make([]Replacement, len(replacements))
	copy(sorted, replacements)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out bytes.Buffer
	out.Grow(len(doc))
	pos := 0
	for _, r := range sorted {
		if r.Start < pos || r.End < r.Start || r.End > len(doc) {
			return nil, fmt.Errorf("invalid replacement range [%d:%d] (document length %d, previous end %d)", r.Start, r.End, len(doc), pos)
		}
		out.Write(doc[pos:r.Start])
		out.WriteString(r.Text)
		pos = r.End
	}
	out.Write(doc[pos:])
	return out.Bytes(), nil
}

// Unified renders the change from before to after as a unified diff with
// a/ and b/ prefixed paths. It returns "" when nothing changed.
func Unified(path string, before, after []byte) (string, error) {
	if bytes.Equal(before, after) {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to diff '%s': %w", path, err)
	}
	return text, nil
}
