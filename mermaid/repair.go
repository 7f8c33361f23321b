package mermaid

import "strings"

// repairStep is one self-gating stage of the repair pipeline.
type repairStep struct {
	id    FixID
	apply func(string) string
}

var repairPipeline = []repairStep{
	{FixBalanceBrackets, balancer('[', ']')},
	{FixBalanceParens, balancer('(', ')')},
	{FixBalanceBraces, balancer('{', '}')},
	{FixCompleteArrows, completeArrows},
}

// Repair applies the fixed repair pipeline to text. Each step only changes
// text that needs it, and the result is a fixed point: repairing it again
// reports Changed == false.
//
// Delimiter balancing is position-unaware: missing closers go to the end of
// the text and missing openers to the start, which restores the counts but
// not necessarily the intended structure.
func Repair(text string) RepairResult {
	result := RepairResult{Text: text}
	for _, step := range repairPipeline {
		next := step.apply(result.Text)
		if next != result.Text {
			result.Applied = append(result.Applied, step.id)
			result.Text = next
		}
	}
	result.Changed = result.Text != text
	return result
}

func balancer(open, close byte) func(string) string {
	return func(text string) string {
		opened := strings.Count(text, string(open))
		closed := strings.Count(text, string(close))
		switch {
		case opened > closed:
			return text + strings.Repeat(string(close), opened-closed)
		case closed > opened:
			return strings.Repeat(string(open), closed-opened) + text
		default:
			return text
		}
	}
}

// completeArrows rewrites every "--" not already followed by '>' into "-->".
func completeArrows(text string) string {
	if !hasBareDashes(text) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	for i := 0; i < len(text); {
		if i+1 < len(text) && text[i] == '-' && text[i+1] == '-' &&
			(i+2 >= len(text) || text[i+2] != '>') {
			b.WriteString("-->")
			i += 2
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}
