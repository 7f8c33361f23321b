package mermaid_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/mermaidcheck/mermaid"
)

const twoDiagrams = "# Doc\n\n```mermaid\ngraph TD\n    A[Start] --> B[End]\n```\n\n```go\npackage main\n```\n\n```Mermaid\nsequenceDiagram\n    A->>B: hi\n```\n"

func TestExtract(t *testing.T) {
	doc := []byte(twoDiagrams)
	blocks := slices.Collect(mermaid.Extract(doc, "docs/a.md"))
	require.Len(t, blocks, 2)

	assert.Equal(t, 1, blocks[0].Index)
	assert.Equal(t, 3, blocks[0].Line)
	assert.Equal(t, "docs/a.md", blocks[0].Source)
	assert.Equal(t, mermaid.TypeGraph, blocks[0].Type)
	assert.True(t, blocks[0].Span.Writable)
	assert.Equal(t, blocks[0].Text, string(doc[blocks[0].Span.Start:blocks[0].Span.End]))

	assert.Equal(t, 2, blocks[1].Index)
	assert.Equal(t, 12, blocks[1].Line)
	assert.Equal(t, mermaid.TypeSequence, blocks[1].Type)
}

func TestExtractFirstBlock(t *testing.T) {
	text := "graph TD\n    A[Start] --> B[End]\n"
	start := strings.Index(twoDiagrams, text)
	require.Positive(t, start)

	want := mermaid.Block{
		Text:   text,
		Source: "a.md",
		Index:  1,
		Line:   3,
		Type:   mermaid.TypeGraph,
		Span:   mermaid.Span{Start: start, End: start + len(text), Writable: true},
	}
	for b := range mermaid.Extract([]byte(twoDiagrams), "a.md") {
		if diff := cmp.Diff(want, b); diff != "" {
			t.Errorf("Extract() first block mismatch (-want +got):\n%s", diff)
		}
		break
	}
}

func TestExtractIsRestartableAndLazy(t *testing.T) {
	seq := mermaid.Extract([]byte(twoDiagrams), "a.md")

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	var seen int
	for range seq {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestExtractUnclosedFenceStillYieldsEarlierBlocks(t *testing.T) {
	doc := []byte("```mermaid\npie\n```\n\n```mermaid\ngraph TD\n  A[x]\n")
	blocks := slices.Collect(mermaid.Extract(doc, "a.md"))
	require.NotEmpty(t, blocks)
	assert.Equal(t, mermaid.TypePie, blocks[0].Type)
}

func TestWhole(t *testing.T) {
	doc := []byte("%% exported\nflowchart LR\n  A[x]\n")
	b := mermaid.Whole(doc, "a.mmd")

	assert.Equal(t, mermaid.TypeFlowchart, b.Type)
	assert.Equal(t, 1, b.Index)
	assert.Equal(t, len(doc), b.Span.End)
	assert.True(t, b.Span.Writable)
}
