package mermaid

import "strings"

var commentMarkers = []string{"%%", "//"}

// isComment reports whether a trimmed line is a comment or directive line.
func isComment(trimmed string) bool {
	for _, marker := range commentMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return true
		}
	}
	return false
}

// Header returns the first non-blank, non-comment line of text, trimmed.
// ok is false when no such line exists.
func Header(text string) (header string, ok bool) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}
		return trimmed, true
	}
	return "", false
}

// Classify returns the diagram type named by the header line of text, or
// TypeUnknown when there is no header or it matches no known keyword.
func Classify(text string) DiagramType {
	header, ok := Header(text)
	if !ok {
		return TypeUnknown
	}
	return classifyHeader(header)
}

func classifyHeader(header string) DiagramType {
	for _, t := range Vocabulary {
		if strings.HasPrefix(header, string(t)) {
			return t
		}
	}
	return TypeUnknown
}
