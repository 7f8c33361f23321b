package parser

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Link is a link destination found in markdown content.
type Link struct {
	URL string
	// Line is the 1-based line the link text starts on, or 0 when unknown.
	Line int
}

// ExtractLinks returns the destinations of inline links and autolinks in
// document order. Links inside code spans and code blocks are not links.
func ExtractLinks(source []byte) ([]Link, error) {
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	var links []Link
	err := ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Link:
			links = append(links, Link{URL: string(n.Destination), Line: lineOfNode(n, source)})
		case *ast.AutoLink:
			links = append(links, Link{URL: string(n.URL(source)), Line: lineOfNode(n, source)})
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

// lineOfNode locates an inline node through its first text descendant, or
// failing that through the first line of its enclosing block.
func lineOfNode(n ast.Node, source []byte) int {
	for c := n.FirstChild(); c != nil; c = c.FirstChild() {
		if t, ok := c.(*ast.Text); ok {
			return lineOf(source, t.Segment.Start)
		}
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
			return lineOf(source, p.Lines().At(0).Start)
		}
	}
	return 0
}
