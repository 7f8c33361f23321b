package mermaidcheck_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/mermaidcheck/cli"
	"github.com/sokinpui/mermaidcheck/internal/config"
	"github.com/sokinpui/mermaidcheck/mermaidcheck"
)

const brokenDoc = "# Doc\n\n```mermaid\ngraph TD\n    A[Start --> B[End]\n```\n"

func TestCheck(t *testing.T) {
	report, err := mermaidcheck.Check(brokenDoc, mermaidcheck.Config{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "UnbalancedBrackets", report.Failures[0].Reason)
	assert.Equal(t, "2 open, 1 close", report.Failures[0].Detail)
}

func TestCheckWithFix(t *testing.T) {
	report, err := mermaidcheck.Check(brokenDoc, mermaidcheck.Config{Fix: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Validated)
	assert.Equal(t, 1, report.Repaired)
	assert.Zero(t, report.Failed)
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte(brokenDoc), 0644))

	report, err := mermaidcheck.CheckFiles(context.Background(), []string{dir}, mermaidcheck.Config{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
}

func TestExecuteWriteThenUndo(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(doc, []byte(brokenDoc), 0644))
	t.Chdir(dir)

	cfg := &cli.Config{Config: config.Defaults(), Paths: []string{doc}}
	cfg.Fix.Enabled = true
	cfg.Fix.Write = true

	result, err := mermaidcheck.New(cfg, nil).Execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Report)
	assert.Equal(t, []string{doc}, result.Report.Written)

	fixed, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.NotEqual(t, brokenDoc, string(fixed))

	undo := &cli.Config{Config: config.Defaults(), Undo: true}
	result, err = mermaidcheck.New(undo, nil).Execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.Len(t, result.Summary.Restored, 1)

	restored, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, brokenDoc, string(restored))
}

func TestDetailedErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &mermaidcheck.DetailedError{Err: inner, Stack: []byte("stack")}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "boom", err.Error())
}
