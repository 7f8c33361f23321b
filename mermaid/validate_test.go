package mermaid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/mermaidcheck/mermaid"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason mermaid.ReasonCode
		detail string
	}{
		{
			name:   "unbalanced brackets",
			text:   "graph TD\n    A[Start --> B[End]\n",
			reason: mermaid.ReasonUnbalancedBrackets,
			detail: "2 open, 1 close",
		},
		{
			name:   "valid graph",
			text:   "graph TD\n    A[Start] --> B[End]\n",
			reason: mermaid.ReasonValid,
		},
		{
			name:   "undefined class",
			text:   "graph TD\n    A[Start]:::missingClass --> B[End]\n",
			reason: mermaid.ReasonUndefinedClassReference,
			detail: "missingClass",
		},
		{
			name:   "defined class",
			text:   "graph TD\n    A[Start]:::ok --> B[End]:::other\n    classDef ok,other fill:#f9f\n",
			reason: mermaid.ReasonValid,
		},
		{
			name:   "class declared after use",
			text:   "graph TD\n    A[Start]:::late\n    classDef late stroke:#333\n",
			reason: mermaid.ReasonValid,
		},
		{
			name:   "first undefined in line order",
			text:   "graph TD\n    A[a]:::first\n    B[b]:::second\n",
			reason: mermaid.ReasonUndefinedClassReference,
			detail: "first",
		},
		{
			name:   "class followed by arrow",
			text:   "graph TD\n    A[a]:::hot--> B[b]\n    classDef hot fill:red\n",
			reason: mermaid.ReasonValid,
		},
		{
			name:   "empty",
			text:   "\n  \n%% just a comment\n",
			reason: mermaid.ReasonEmptyContent,
		},
		{
			name:   "unknown type",
			text:   "blockDiagram\n  a b\n",
			reason: mermaid.ReasonUnknownDiagramType,
			detail: "blockDiagram",
		},
		{
			name:   "unbalanced parens",
			text:   "graph TD\n    A[x] --> B((y)\n",
			reason: mermaid.ReasonUnbalancedParens,
			detail: "2 open, 1 close",
		},
		{
			name:   "unbalanced braces",
			text:   "graph TD\n    A[x] --> B{y}}\n",
			reason: mermaid.ReasonUnbalancedBraces,
			detail: "1 open, 2 close",
		},
		{
			name:   "incomplete arrow next to complete one",
			text:   "graph TD\n    A[x] --> B[y]\n    B -- C[z]\n",
			reason: mermaid.ReasonIncompleteArrow,
			detail: "2 '--' sequences, 1 complete arrows",
		},
		{
			name:   "long arrow counts once",
			text:   "graph TD\n    A[x] ---> B[y]\n",
			reason: mermaid.ReasonValid,
		},
		{
			name:   "problematic label",
			text:   "graph TD\n    A[a <b>] --> B[y]\n",
			reason: mermaid.ReasonProblematicCharacterPattern,
			detail: "line 2: [a <b>]",
		},
		{
			name:   "quotes allowed on style lines",
			text:   "graph TD\n    A[x] --> B[y]\n    style A fill:#f9f,font-family:\"Arial\"\n",
			reason: mermaid.ReasonValid,
		},
		{
			name:   "graph without nodes",
			text:   "graph TD\n    A --> B\n",
			reason: mermaid.ReasonNoNodeDefinitions,
			detail: "no [...] node definitions in graph",
		},
		{
			name:   "style line does not count as node",
			text:   "flowchart LR\n    A --> B\n    classDef x fill:[1]\n",
			reason: mermaid.ReasonNoNodeDefinitions,
			detail: "no [...] node definitions in flowchart",
		},
		{
			name:   "sequence needs no nodes",
			text:   "sequenceDiagram\n    Alice->>Bob: Hello\n",
			reason: mermaid.ReasonValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mermaid.ValidateText(tt.text)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Equal(t, tt.reason == mermaid.ReasonValid, v.Valid)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, v.Detail)
			}
		})
	}
}

func TestValidateReportsEarliestCheck(t *testing.T) {
	// Both unbalanced and referencing an undeclared class.
	v := mermaid.ValidateText("graph TD\n    A[Start:::nope --> B[End]\n")
	assert.Equal(t, mermaid.ReasonUnbalancedBrackets, v.Reason)

	// Unknown type wins over everything structural.
	v = mermaid.ValidateText("nonsense [[[\n")
	assert.Equal(t, mermaid.ReasonUnknownDiagramType, v.Reason)
}

func TestValidateBareArrowWithoutCompleteArrows(t *testing.T) {
	v := mermaid.ValidateText("graph TD\n    A[Start] -- B[End]\n")
	assert.True(t, v.Valid, v.String())
}

func TestValidateWithIgnoreQuoted(t *testing.T) {
	text := "graph TD\n    A[\"pre -- post\"] --> B[y]\n"

	v := mermaid.ValidateText(text)
	assert.Equal(t, mermaid.ReasonIncompleteArrow, v.Reason)

	v = mermaid.ValidateWith(mermaid.Block{Text: text}, mermaid.Options{IgnoreQuoted: true})
	// The quoted label is still a problematic character pattern.
	assert.Equal(t, mermaid.ReasonProblematicCharacterPattern, v.Reason)
}

func TestValidateIsPure(t *testing.T) {
	block := mermaid.Block{Text: "graph TD\n    A[x] --> B[y]\n"}
	first := mermaid.Validate(block)
	second := mermaid.Validate(block)
	assert.Equal(t, first, second)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "Valid", mermaid.Verdict{Valid: true, Reason: mermaid.ReasonValid}.String())
	assert.Equal(t, "UnbalancedBraces: 1 open, 0 close",
		mermaid.Verdict{Reason: mermaid.ReasonUnbalancedBraces, Detail: "1 open, 0 close"}.String())
}

func TestReasonRepairable(t *testing.T) {
	assert.False(t, mermaid.ReasonEmptyContent.Repairable())
	assert.False(t, mermaid.ReasonUnknownDiagramType.Repairable())
	assert.True(t, mermaid.ReasonUnbalancedBrackets.Repairable())
	assert.True(t, mermaid.ReasonIncompleteArrow.Repairable())
}
