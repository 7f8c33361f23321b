package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock represents a parsed fenced code block from markdown content.
type CodeBlock struct {
	// Hint is the content of the paragraph immediately preceding the code block.
	Hint string
	// Lang is the first word of the info string, lower-cased (e.g., "mermaid").
	Lang string
	// Content is the raw text inside the code block.
	Content string
	// Line is the 1-based line of the opening fence.
	Line int
	// Start and End delimit the block body in the source. They are only
	// meaningful when Contiguous is true.
	Start, End int
	// Contiguous reports whether Content is exactly source[Start:End]. Blocks
	// nested in block quotes or indented containers are not.
	Contiguous bool
}

// WalkCodeBlocks parses source as markdown and calls fn for every fenced code
// block in document order. Walking stops early when fn returns false.
func WalkCodeBlocks(source []byte, fn func(CodeBlock) bool) error {
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fencedCodeBlock, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		block := newCodeBlock(fencedCodeBlock, source)
		if !fn(block) {
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	}

	return ast.Walk(root, walker)
}

func newCodeBlock(fcb *ast.FencedCodeBlock, source []byte) CodeBlock {
	var block CodeBlock
	if fcb.Info != nil {
		block.Lang = strings.ToLower(strings.TrimSpace(string(fcb.Language(source))))
		block.Line = lineOf(source, fcb.Info.Segment.Start)
	}

	var content bytes.Buffer
	lines := fcb.Lines()
	block.Contiguous = true
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		content.Write(line.Value(source))

		if line.Padding > 0 {
			block.Contiguous = false
		}
		if i == 0 {
			block.Start = line.Start
		} else if lines.At(i-1).Stop != line.Start {
			block.Contiguous = false
		}
		block.End = line.Stop
	}
	block.Content = content.String()

	if lines.Len() == 0 {
		// An empty body has no segment to anchor a rewrite on.
		block.Contiguous = false
	}
	if block.Line == 0 && lines.Len() > 0 {
		block.Line = lineOf(source, lines.At(0).Start) - 1
	}

	if prev := fcb.PreviousSibling(); prev != nil {
		if p, ok := prev.(*ast.Paragraph); ok {
			block.Hint = strings.TrimSpace(string(p.Lines().Value(source)))
		}
	}

	return block
}

// lineOf returns the 1-based line number containing the byte offset.
func lineOf(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return bytes.Count(source[:offset], []byte("\n")) + 1
}
