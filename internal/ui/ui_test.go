package ui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/sokinpui/mermaidcheck/internal/ui"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevNoColor := ui.Output, color.NoColor
	ui.Output, color.NoColor = &buf, true
	t.Cleanup(func() {
		ui.Output, color.NoColor = prevOut, prevNoColor
	})
	return &buf
}

func TestMessages(t *testing.T) {
	buf := captureOutput(t)

	ui.Warning("unmatched fence in %s", "a.md")
	ui.Path("- %s", "b.md")

	assert.Equal(t, "unmatched fence in a.md\n  - b.md\n", buf.String())
}

func TestProgressBar(t *testing.T) {
	buf := captureOutput(t)

	bar := ui.NewProgressBar(0, "Checking")
	bar.Set(1, 4)
	bar.Finish()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\rChecking |"))
	assert.Contains(t, out, "[1/4] 25.0%")
	assert.True(t, strings.HasSuffix(out, "\n"))
}
