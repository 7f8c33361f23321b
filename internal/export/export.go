// Package export writes extracted diagrams to standalone .mmd files.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokinpui/mermaidcheck/internal/fs"
)

const SummaryFile = "summary.json"

// Document is a source file and the diagram texts found in it, in order.
type Document struct {
	File     string
	Diagrams []string
}

// Summary is written next to the exported diagrams.
type Summary struct {
	TotalFiles     int            `json:"total_files"`
	TotalDiagrams  int            `json:"total_diagrams"`
	DiagramsByFile map[string]int `json:"diagrams_by_file"`
	Files          []string       `json:"files"`
}

// Write saves every diagram of docs into dir as <stem>_diagram_<n>.mmd and
// writes summary.json. Documents with the same stem are told apart by their
// directory.
func Write(dir string, docs []Document) (*Summary, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create export directory: %w", err)
	}

	summary := &Summary{
		TotalFiles:     len(docs),
		DiagramsByFile: make(map[string]int),
		Files:          []string{},
	}
	stems := make(map[string]int)
	for _, doc := range docs {
		stems[stem(doc.File)]++
	}

	for _, doc := range docs {
		if len(doc.Diagrams) == 0 {
			continue
		}
		base := stem(doc.File)
		if stems[base] > 1 {
			base = flatten(doc.File)
		}
		for i, text := range doc.Diagrams {
			name := fmt.Sprintf("%s_diagram_%d.mmd", base, i+1)
			if err := fs.WriteFileAtomic(filepath.Join(dir, name), []byte(text)); err != nil {
				return nil, fmt.Errorf("could not export '%s': %w", name, err)
			}
			summary.Files = append(summary.Files, name)
		}
		summary.DiagramsByFile[doc.File] = len(doc.Diagrams)
		summary.TotalDiagrams += len(doc.Diagrams)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := fs.WriteFileAtomic(filepath.Join(dir, SummaryFile), data); err != nil {
		return nil, fmt.Errorf("could not write export summary: %w", err)
	}
	return summary, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// flatten turns a relative path into a single file name component.
func flatten(path string) string {
	path = strings.TrimSuffix(filepath.Clean(path), filepath.Ext(path))
	path = strings.TrimLeft(filepath.ToSlash(path), "./")
	return strings.NewReplacer("/", "_", ":", "_").Replace(path)
}
