package mermaid

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	classRefRegex = regexp.MustCompile(`:::([\w-]+)`)
	classDefRegex = regexp.MustCompile(`^\s*classDef\s+(\S+)`)
	// problematicLabelRegex matches a [...] label holding a character that
	// Mermaid needs escaped.
	problematicLabelRegex = regexp.MustCompile(`\[[^\]]*[<>&"'][^\]]*\]`)
)

// Options tunes the heuristic checks.
type Options struct {
	// IgnoreQuoted blanks "..." spans before the arrow check, so a label
	// such as "pre -- post" is not mistaken for a broken arrow.
	IgnoreQuoted bool
}

// rule is one entry of the ordered check table. It returns the failing
// verdict and true, or false when the block passes.
type rule func(*subject) (Verdict, bool)

// rules run in this order and the first failure wins.
var rules = []rule{
	checkContent,
	checkType,
	balanceRule('[', ']', ReasonUnbalancedBrackets),
	balanceRule('(', ')', ReasonUnbalancedParens),
	balanceRule('{', '}', ReasonUnbalancedBraces),
	checkArrows,
	checkClassReferences,
	checkLabels,
	checkNodes,
}

// subject is the per-call view of a block shared by the rules.
type subject struct {
	text      string
	lines     []string
	header    string
	hasHeader bool
	typ       DiagramType
	opts      Options
}

// Validate runs the structural checks against b with default options.
func Validate(b Block) Verdict {
	return ValidateWith(b, Options{})
}

// ValidateWith runs the structural checks against b and returns the first
// failure, or a Valid verdict. Malformed input always yields a verdict.
func ValidateWith(b Block, opts Options) Verdict {
	header, ok := Header(b.Text)
	s := &subject{
		text:      b.Text,
		lines:     strings.Split(b.Text, "\n"),
		header:    header,
		hasHeader: ok,
		typ:       TypeUnknown,
		opts:      opts,
	}
	if ok {
		s.typ = classifyHeader(header)
	}

	for _, check := range rules {
		if v, failed := check(s); failed {
			return v
		}
	}
	return Verdict{Valid: true, Reason: ReasonValid}
}

// ValidateText is Validate for bare diagram text.
func ValidateText(text string) Verdict {
	return Validate(Block{Text: text, Type: Classify(text)})
}

func fail(reason ReasonCode, format string, args ...any) (Verdict, bool) {
	return Verdict{Reason: reason, Detail: fmt.Sprintf(format, args...)}, true
}

func checkContent(s *subject) (Verdict, bool) {
	if !s.hasHeader {
		return fail(ReasonEmptyContent, "no diagram content")
	}
	return Verdict{}, false
}

func checkType(s *subject) (Verdict, bool) {
	if s.typ == TypeUnknown {
		return fail(ReasonUnknownDiagramType, "%s", s.header)
	}
	return Verdict{}, false
}

func balanceRule(open, close byte, reason ReasonCode) rule {
	return func(s *subject) (Verdict, bool) {
		opened := strings.Count(s.text, string(open))
		closed := strings.Count(s.text, string(close))
		if opened != closed {
			return fail(reason, "%d open, %d close", opened, closed)
		}
		return Verdict{}, false
	}
}

// checkArrows is a counting heuristic, not a tokenizer: it only fires when
// complete arrows are present, and a "--" inside a quoted label counts as a
// bare arrow unless Options.IgnoreQuoted is set.
func checkArrows(s *subject) (Verdict, bool) {
	text := s.text
	if s.opts.IgnoreQuoted {
		text = blankQuoted(text)
	}

	arrows := strings.Count(text, "-->")
	if arrows == 0 || !hasBareDashes(text) {
		return Verdict{}, false
	}
	pairs := strings.Count(text, "--")
	if pairs != arrows {
		return fail(ReasonIncompleteArrow, "%d '--' sequences, %d complete arrows", pairs, arrows)
	}
	return Verdict{}, false
}

// hasBareDashes reports whether text holds a "--" not immediately followed by '>'.
func hasBareDashes(text string) bool {
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '-' && text[i+1] == '-' && (i+2 >= len(text) || text[i+2] != '>') {
			return true
		}
	}
	return false
}

// blankQuoted replaces the contents of double-quoted spans with spaces.
// Quotes do not span lines.
func blankQuoted(text string) string {
	out := []byte(text)
	inQuote := false
	for i, c := range out {
		switch {
		case c == '\n':
			inQuote = false
		case c == '"':
			inQuote = !inQuote
		case inQuote:
			out[i] = ' '
		}
	}
	return string(out)
}

func checkClassReferences(s *subject) (Verdict, bool) {
	declared := make(map[string]struct{})
	var referenced []string

	for _, line := range s.lines {
		if m := classDefRegex.FindStringSubmatch(line); m != nil {
			for _, name := range strings.Split(m[1], ",") {
				if name = strings.TrimSpace(name); name != "" {
					declared[name] = struct{}{}
				}
			}
		}
		for _, m := range classRefRegex.FindAllStringSubmatch(line, -1) {
			// A trailing "--" belongs to an arrow, not the class name.
			if name := strings.TrimRight(m[1], "-"); name != "" {
				referenced = append(referenced, name)
			}
		}
	}

	for _, name := range referenced {
		if _, ok := declared[name]; !ok {
			return fail(ReasonUndefinedClassReference, "%s", name)
		}
	}
	return Verdict{}, false
}

// isStyleLine reports whether a line declares styling, where CSS-like values
// may legitimately use quotes and angle brackets.
func isStyleLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "style") || strings.HasPrefix(trimmed, "classDef")
}

func checkLabels(s *subject) (Verdict, bool) {
	for i, line := range s.lines {
		if isStyleLine(line) {
			continue
		}
		if label := problematicLabelRegex.FindString(line); label != "" {
			return fail(ReasonProblematicCharacterPattern, "line %d: %s", i+1, label)
		}
	}
	return Verdict{}, false
}

func checkNodes(s *subject) (Verdict, bool) {
	if !s.typ.IsFlowchart() {
		return Verdict{}, false
	}
	for _, line := range s.lines {
		if strings.Contains(line, "[") && strings.Contains(line, "]") && !isStyleLine(line) {
			return Verdict{}, false
		}
	}
	return fail(ReasonNoNodeDefinitions, "no [...] node definitions in %s", s.typ)
}
