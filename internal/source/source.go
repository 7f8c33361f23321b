package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/mermaidcheck/internal/ui"
)

// Name is the file name reported for content that did not come from a file.
const Name = "<stdin>"

// SourceProvider determines and retrieves document content when no paths
// were given.
type SourceProvider struct {
	stdin     *os.File
	clipboard func() (string, error)
}

// New creates a new SourceProvider.
func New() *SourceProvider {
	return &SourceProvider{stdin: os.Stdin, clipboard: clipboard.ReadAll}
}

// GetContent retrieves content from stdin (if piped) or the clipboard. An
// empty clipboard yields "" and no error.
func (sp *SourceProvider) GetContent() (string, error) {
	if isPiped(sp.stdin) {
		ui.Header("--- Reading from stdin ---")
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	ui.Header("--- Reading from clipboard ---")
	content, err := sp.clipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Clipboard is empty. Nothing to check.")
		return "", nil
	}
	return content, nil
}

func isPiped(f *os.File) bool {
	if f == nil {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
