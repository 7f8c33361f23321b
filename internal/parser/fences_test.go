package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/mermaidcheck/internal/parser"
)

func TestScanFences(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		count    int
		unclosed int
		matched  bool
	}{
		{"no fences", "just text\n", 0, 0, true},
		{"one pair", "```mermaid\ngraph TD\n```\n", 2, 0, true},
		{"two pairs", "```a\n```\ntext\n~~~b\n~~~\n", 4, 0, true},
		{"unclosed", "ok\n```mermaid\ngraph TD\n", 1, 2, false},
		{"closer needs same char", "```a\n~~~\n", 1, 1, false},
		{"longer closer", "```a\nx\n`````\n", 2, 0, true},
		{"closer with info is content", "```a\n```b\n```\n", 2, 0, true},
		{"tilde hides backticks", "~~~\n```\n~~~\n", 2, 0, true},
		{"indented four spaces is code", "    ```\n", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scan := parser.ScanFences([]byte(tt.source))
			assert.Equal(t, tt.count, scan.Count)
			assert.Equal(t, tt.unclosed, scan.UnclosedLine)
			assert.Equal(t, tt.matched, scan.Matched())
		})
	}
}
