// Package report renders run results as console text, JSON or Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/mermaidcheck/model"
)

const (
	FormatConsole  = "console"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Render formats r in the named format. The timestamp only appears in
// Markdown output.
func Render(format string, r *model.Report, strict bool, now time.Time) (string, error) {
	switch format {
	case "", FormatConsole:
		return Console(r, strict), nil
	case FormatJSON:
		data, err := JSON(r)
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case FormatMarkdown:
		return Markdown(r, strict, now), nil
	default:
		return "", fmt.Errorf("unknown report format '%s'", format)
	}
}

// JSON encodes r with two-space indentation.
func JSON(r *model.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode report: %w", err)
	}
	return data, nil
}

// Console renders r for a terminal.
func Console(r *model.Report, strict bool) string {
	var b strings.Builder

	for _, d := range r.Diffs {
		b.WriteString(d.Diff)
		b.WriteString("\n")
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("Mermaid diagrams: %d in %d file(s)", r.Total, r.Files)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Validated: %d  Failed: %d  Repaired: %d\n", r.Validated, r.Failed, r.Repaired)

	if len(r.Failures) > 0 {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Failures:"))
		b.WriteString("\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  %s  block %d (line %d)  %s\n",
				pathStyle.Render(f.File), f.BlockIndex, f.Line, reasonText(f.Reason, f.Detail))
		}
	}

	if len(r.Repairs) > 0 {
		b.WriteString("\n")
		b.WriteString(successStyle.Render("Repaired:"))
		b.WriteString("\n")
		for _, rep := range r.Repairs {
			fmt.Fprintf(&b, "  %s  block %d (line %d)  %s -> %s\n",
				pathStyle.Render(rep.File), rep.BlockIndex, rep.Line, rep.Reason, strings.Join(rep.Fixes, ", "))
		}
	}

	if len(r.Written) > 0 {
		b.WriteString("\n")
		b.WriteString(successStyle.Render("Written:"))
		b.WriteString("\n")
		for _, f := range r.Written {
			fmt.Fprintf(&b, "  %s\n", pathStyle.Render(f))
		}
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render("Issues:"))
		b.WriteString("\n")
		for _, is := range r.Issues {
			fmt.Fprintf(&b, "  %s: %s\n", pathStyle.Render(is.File), is.Message)
		}
	}

	if l := r.Links; l != nil {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("Links: %d checked, %d passed, %d skipped", l.Checked, l.Passed, l.Skipped)))
		b.WriteString("\n")
		for _, f := range l.Failures {
			fmt.Fprintf(&b, "  %s:%d  %s  %s\n", pathStyle.Render(f.File), f.Line, f.URL, errorStyle.Render(f.Error))
		}
	}

	b.WriteString("\n")
	switch {
	case r.Total == 0 && len(r.Issues) == 0:
		b.WriteString(faintStyle.Render("No mermaid diagrams found."))
	case r.OK(strict):
		b.WriteString(successStyle.Render("All diagrams are valid."))
	case r.Failed > 0:
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d diagram(s) failed validation.", r.Failed)))
	default:
		b.WriteString(errorStyle.Render("Checks failed in strict mode."))
	}
	b.WriteString("\n")
	return b.String()
}

// Summary renders the outcome of an undo or redo.
func Summary(s model.Summary) string {
	var b strings.Builder

	if s.Message != "" {
		b.WriteString(headerStyle.Render(s.Message))
		b.WriteString("\n\n")
	}

	hasContent := false
	if len(s.Restored) > 0 {
		hasContent = true
		b.WriteString(successStyle.Render("Restored:"))
		b.WriteString("\n")
		for _, f := range s.Restored {
			fmt.Fprintf(&b, "  %s\n", pathStyle.Render(f))
		}
	}
	if len(s.Failed) > 0 {
		hasContent = true
		b.WriteString(errorStyle.Render("Changed since, left alone:"))
		b.WriteString("\n")
		for _, f := range s.Failed {
			fmt.Fprintf(&b, "  %s\n", pathStyle.Render(f))
		}
	}

	if !hasContent && s.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
		b.WriteString("\n")
	}
	return b.String()
}

func reasonText(reason, detail string) string {
	if detail == "" {
		return reason
	}
	return reason + ": " + detail
}

// Markdown renders r as a verification report document.
func Markdown(r *model.Report, strict bool, now time.Time) string {
	var b strings.Builder

	b.WriteString("# Documentation Verification Report\n\n")
	fmt.Fprintf(&b, "**Generated**: %s\n\n", now.UTC().Format("2006-01-02 15:04:05 UTC"))

	issues := r.Failed + len(r.Issues)
	if r.Links != nil {
		issues += len(r.Links.Failures)
	}
	if r.OK(strict) {
		b.WriteString("## Overall Status: PASSED\n\n")
		b.WriteString("All verification checks completed successfully.\n\n")
	} else {
		b.WriteString("## Overall Status: FAILED\n\n")
		fmt.Fprintf(&b, "Found %d issue(s) that need attention.\n\n", issues)
	}

	b.WriteString("### Mermaid Diagrams\n\n")
	fmt.Fprintf(&b, "- **Total files processed**: %d\n", r.Files)
	fmt.Fprintf(&b, "- **Total diagrams found**: %d\n", r.Total)
	fmt.Fprintf(&b, "- **Validated**: %d\n", r.Validated)
	fmt.Fprintf(&b, "- **Failed**: %d\n", r.Failed)
	fmt.Fprintf(&b, "- **Repaired**: %d\n\n", r.Repaired)

	if len(r.DiagramsByFile) > 0 {
		b.WriteString("#### Diagrams by File\n\n")
		files := make([]string, 0, len(r.DiagramsByFile))
		for f := range r.DiagramsByFile {
			files = append(files, f)
		}
		sort.Strings(files)
		for _, f := range files {
			fmt.Fprintf(&b, "- `%s`: %d diagram(s)\n", f, r.DiagramsByFile[f])
		}
		b.WriteString("\n")
	}

	if len(r.Failures) > 0 {
		b.WriteString("#### Failures\n\n")
		b.WriteString("| File | Block | Line | Reason | Detail |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "| `%s` | %d | %d | %s | %s |\n", f.File, f.BlockIndex, f.Line, f.Reason, escapeCell(f.Detail))
		}
		b.WriteString("\n")
	}

	if len(r.Repairs) > 0 {
		b.WriteString("#### Repairs\n\n")
		for _, rep := range r.Repairs {
			fmt.Fprintf(&b, "- `%s` block %d: %s (%s)\n", rep.File, rep.BlockIndex, rep.Reason, strings.Join(rep.Fixes, ", "))
		}
		b.WriteString("\n")
	}

	if len(r.Diffs) > 0 {
		b.WriteString("#### Proposed Changes\n\n")
		for _, d := range r.Diffs {
			b.WriteString("```diff\n")
			b.WriteString(d.Diff)
			if !strings.HasSuffix(d.Diff, "\n") {
				b.WriteString("\n")
			}
			b.WriteString("```\n\n")
		}
	}

	if len(r.Issues) > 0 {
		b.WriteString("#### File Issues\n\n")
		for _, is := range r.Issues {
			fmt.Fprintf(&b, "- `%s`: %s\n", is.File, is.Message)
		}
		b.WriteString("\n")
	}

	if l := r.Links; l != nil {
		b.WriteString("### Link Testing\n\n")
		fmt.Fprintf(&b, "- **Total links tested**: %d\n", l.Checked)
		fmt.Fprintf(&b, "- **Passed**: %d\n", l.Passed)
		fmt.Fprintf(&b, "- **Failed**: %d\n", len(l.Failures))
		fmt.Fprintf(&b, "- **Skipped**: %d\n", l.Skipped)
		rate := 100.0
		if l.Checked > 0 {
			rate = float64(l.Passed) * 100 / float64(l.Checked)
		}
		fmt.Fprintf(&b, "- **Success rate**: %.1f%%\n\n", rate)

		writeLinkFailures(&b, "Failed Internal Links", l.Failures, false)
		writeLinkFailures(&b, "Failed External Links", l.Failures, true)
	}

	b.WriteString("## Recommendations\n\n")
	if r.OK(strict) {
		b.WriteString("- Documentation is ready for deployment\n")
	} else {
		fmt.Fprintf(&b, "- Fix the %d identified issue(s)\n", issues)
		b.WriteString("- Re-run verification after fixes\n")
		if r.Links != nil && hasExternalFailure(r.Links.Failures) {
			b.WriteString("- Review external link failures (may be temporary)\n")
		}
	}
	return b.String()
}

func writeLinkFailures(b *strings.Builder, title string, failures []model.LinkFailure, external bool) {
	var matched []model.LinkFailure
	for _, f := range failures {
		if f.External == external {
			matched = append(matched, f)
		}
	}
	if len(matched) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n\n", title)
	for _, f := range matched {
		fmt.Fprintf(b, "- `%s:%d`: %s - %s\n", f.File, f.Line, f.URL, f.Error)
	}
	b.WriteString("\n")
}

func hasExternalFailure(failures []model.LinkFailure) bool {
	for _, f := range failures {
		if f.External {
			return true
		}
	}
	return false
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
