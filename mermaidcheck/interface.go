package mermaidcheck

import (
	"context"

	"github.com/sokinpui/mermaidcheck/internal/batch"
	"github.com/sokinpui/mermaidcheck/internal/source"
	"github.com/sokinpui/mermaidcheck/mermaid"
	"github.com/sokinpui/mermaidcheck/model"
)

// Config for using mermaidcheck as a library.
type Config struct {
	// Repair failing diagrams and re-validate them. Files are never written.
	Fix bool
	// Escape special characters in labels as part of the repair.
	EscapeLabels bool
	// Ignore "--" inside quoted labels when checking arrows.
	IgnoreQuotedArrows bool
	// Extensions searched when walking directories. Empty means the defaults.
	Extensions []string
}

func (c Config) options() batch.Options {
	return batch.Options{
		Extensions:   c.Extensions,
		Validate:     mermaid.Options{IgnoreQuoted: c.IgnoreQuotedArrows},
		Fix:          c.Fix,
		EscapeLabels: c.EscapeLabels,
	}
}

// Check validates every mermaid block of a markdown document.
func Check(content string, config Config) (*model.Report, error) {
	return batch.New(config.options(), nil).RunContent(context.Background(), source.Name, []byte(content))
}

// CheckFiles validates every mermaid block of the files under paths.
func CheckFiles(ctx context.Context, paths []string, config Config) (*model.Report, error) {
	return batch.New(config.options(), nil).Run(ctx, paths)
}
