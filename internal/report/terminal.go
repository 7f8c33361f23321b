package report

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// Terminal renders a Markdown report for display in a terminal of the given
// width.
func Terminal(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("could not create markdown renderer: %w", err)
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("could not render markdown: %w", err)
	}
	return out, nil
}
