package mermaid

import (
	"iter"

	"github.com/sokinpui/mermaidcheck/internal/parser"
)

// Lang is the fence info word that marks a diagram block.
const Lang = "mermaid"

// Extract yields the mermaid blocks of a markdown document in order. The
// sequence is lazy and can be ranged over more than once; each pass parses
// doc again. Other fenced blocks are skipped but do not shift Index.
func Extract(doc []byte, source string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		index := 0
		// The markdown walker cannot fail for parsed input, and a partial
		// walk has already yielded everything it found.
		_ = parser.WalkCodeBlocks(doc, func(cb parser.CodeBlock) bool {
			if cb.Lang != Lang {
				return true
			}
			index++
			return yield(Block{
				Text:   cb.Content,
				Source: source,
				Index:  index,
				Line:   cb.Line,
				Type:   Classify(cb.Content),
				Span: Span{
					Start:    cb.Start,
					End:      cb.End,
					Writable: cb.Contiguous,
				},
			})
		})
	}
}

// Whole treats an entire standalone diagram file (.mmd) as one block.
func Whole(doc []byte, source string) Block {
	text := string(doc)
	return Block{
		Text:   text,
		Source: source,
		Index:  1,
		Line:   1,
		Type:   Classify(text),
		Span:   Span{Start: 0, End: len(doc), Writable: true},
	}
}
