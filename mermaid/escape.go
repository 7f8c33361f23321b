package mermaid

import (
	"regexp"
	"strings"
)

var labelRegex = regexp.MustCompile(`\[[^\]]*\]`)

// labelEntities maps characters that break Mermaid labels to the entity codes
// Mermaid renders in their place.
var labelEntities = strings.NewReplacer(
	"&", "#amp;",
	"<", "#lt;",
	">", "#gt;",
	`"`, "#quot;",
	"'", "#39;",
)

// EscapeLabels rewrites the special characters inside [...] labels as
// Mermaid entity codes. style and classDef lines are left alone. It is a
// cosmetic transform, separate from Repair, and it is idempotent.
func EscapeLabels(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if isStyleLine(line) {
			continue
		}
		lines[i] = labelRegex.ReplaceAllStringFunc(line, labelEntities.Replace)
	}
	return strings.Join(lines, "\n")
}
