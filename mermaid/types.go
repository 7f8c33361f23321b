// Package mermaid is the diagram syntax engine: it extracts Mermaid blocks
// from markdown, classifies them by diagram type, checks their structure and
// applies idempotent textual repairs.
//
// Every function in this package is a pure transform of its input. Nothing is
// shared between calls, so blocks can be processed from any number of
// goroutines without coordination.
package mermaid

// DiagramType is the diagram grammar named by a block's header keyword.
type DiagramType string

const (
	TypeUnknown       DiagramType = "unknown"
	TypeGraph         DiagramType = "graph"
	TypeFlowchart     DiagramType = "flowchart"
	TypeSequence      DiagramType = "sequenceDiagram"
	TypeClass         DiagramType = "classDiagram"
	TypeState         DiagramType = "stateDiagram"
	TypeER            DiagramType = "erDiagram"
	TypeJourney       DiagramType = "journey"
	TypeGantt         DiagramType = "gantt"
	TypePie           DiagramType = "pie"
	TypeQuadrantChart DiagramType = "quadrantChart"
	TypeTimeline      DiagramType = "timeline"
	TypeGitGraph      DiagramType = "gitgraph"
	TypeUserJourney   DiagramType = "user-journey"
	TypeMindmap       DiagramType = "mindmap"
	TypeRadar         DiagramType = "radar"
)

// Vocabulary is the closed set of recognised header keywords. No entry is a
// prefix of another, so the first match is the only match.
var Vocabulary = []DiagramType{
	TypeGraph,
	TypeFlowchart,
	TypeSequence,
	TypeClass,
	TypeState,
	TypeER,
	TypeJourney,
	TypeGantt,
	TypePie,
	TypeQuadrantChart,
	TypeTimeline,
	TypeGitGraph,
	TypeUserJourney,
	TypeMindmap,
	TypeRadar,
}

// IsFlowchart reports whether t belongs to the graph/flowchart family.
func (t DiagramType) IsFlowchart() bool {
	return t == TypeGraph || t == TypeFlowchart
}

// Span locates a block body inside its document.
type Span struct {
	Start, End int
	// Writable is false when the body is not source[Start:End] verbatim,
	// e.g. a fence nested in a block quote.
	Writable bool
}

// Block is one diagram extracted from a document.
type Block struct {
	Text   string
	Source string
	// Index is the 1-based position of the block among the diagrams of Source.
	Index int
	// Line is the 1-based line of the opening fence.
	Line int
	Type DiagramType
	Span Span
}

// WithText returns a copy of b carrying text, reclassified.
func (b Block) WithText(text string) Block {
	b.Text = text
	b.Type = Classify(text)
	return b
}

// ReasonCode names the outcome of a validation pass.
type ReasonCode string

const (
	ReasonEmptyContent                ReasonCode = "EmptyContent"
	ReasonUnknownDiagramType          ReasonCode = "UnknownDiagramType"
	ReasonUnbalancedBrackets          ReasonCode = "UnbalancedBrackets"
	ReasonUnbalancedParens            ReasonCode = "UnbalancedParens"
	ReasonUnbalancedBraces            ReasonCode = "UnbalancedBraces"
	ReasonIncompleteArrow             ReasonCode = "IncompleteArrow"
	ReasonUndefinedClassReference     ReasonCode = "UndefinedClassReference"
	ReasonProblematicCharacterPattern ReasonCode = "ProblematicCharacterPattern"
	ReasonNoNodeDefinitions           ReasonCode = "NoNodeDefinitions"
	ReasonValid                       ReasonCode = "Valid"
)

// Repairable reports whether the repair pass can possibly resolve r.
// A repair cannot invent a diagram type.
func (r ReasonCode) Repairable() bool {
	switch r {
	case ReasonEmptyContent, ReasonUnknownDiagramType, ReasonValid:
		return false
	default:
		return true
	}
}

// Verdict is the result of validating one block.
type Verdict struct {
	Valid  bool
	Reason ReasonCode
	Detail string
}

func (v Verdict) String() string {
	if v.Detail == "" {
		return string(v.Reason)
	}
	return string(v.Reason) + ": " + v.Detail
}

// FixID identifies one step of the repair pipeline.
type FixID string

const (
	FixBalanceBrackets FixID = "balance-brackets"
	FixBalanceParens   FixID = "balance-parens"
	FixBalanceBraces   FixID = "balance-braces"
	FixCompleteArrows  FixID = "complete-arrows"

	// FixEscapeLabels is applied by EscapeLabels, never by Repair.
	FixEscapeLabels FixID = "escape-labels"
)

// RepairResult is the outcome of one repair pass.
type RepairResult struct {
	Text    string
	Changed bool
	// Applied lists the fixes that modified the text, in pipeline order.
	Applied []FixID
}
