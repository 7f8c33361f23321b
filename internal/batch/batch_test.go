package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sokinpui/mermaidcheck/internal/export"
	"github.com/sokinpui/mermaidcheck/internal/state"
	"github.com/sokinpui/mermaidcheck/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const twoBlocks = "# Doc\n\n```mermaid\ngraph TD\n    A[Start] --> B[End]\n```\n\n```mermaid\ngraph TD\n    A[Start] --> B{Decision\n```\n"

type fakeRecorder struct {
	mu      sync.Mutex
	changes []state.Change
}

func (f *fakeRecorder) Record(changes []state.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, changes...)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunReportsFailingBlockOnly(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.md", twoBlocks)

	report, err := New(Options{}, nil).Run(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Validated)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, model.Failure{
		File:       doc,
		BlockIndex: 2,
		Line:       8,
		Reason:     "UnbalancedBraces",
		Detail:     "1 open, 0 close",
	}, report.Failures[0])
	assert.Equal(t, map[string]int{doc: 2}, report.DiagramsByFile)
	assert.False(t, report.OK(false))
}

func TestRunFixWithoutWriteLeavesFile(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.md", twoBlocks)

	report, err := New(Options{Fix: true}, nil).Run(context.Background(), []string{doc})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Validated)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Repaired)
	require.Len(t, report.Repairs, 1)
	assert.Equal(t, "UnbalancedBraces", report.Repairs[0].Reason)
	assert.Equal(t, []string{"balance-braces"}, report.Repairs[0].Fixes)
	assert.Empty(t, report.Written)
	assert.Equal(t, twoBlocks, readFile(t, doc))
	assert.True(t, report.OK(true))
}

func TestRunWritesRepairedBlocks(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.md", twoBlocks)
	recorder := &fakeRecorder{}

	d := New(Options{Fix: true, Write: true}, nil)
	d.SetRecorder(recorder)
	report, err := d.Run(context.Background(), []string{dir})
	require.NoError(t, err)

	want := "# Doc\n\n```mermaid\ngraph TD\n    A[Start] --> B[End]\n```\n\n```mermaid\ngraph TD\n    A[Start] --> B{Decision\n}\n```\n"
	assert.Equal(t, want, readFile(t, doc))
	assert.Equal(t, []string{doc}, report.Written)

	require.Len(t, recorder.changes, 1)
	assert.Equal(t, twoBlocks, string(recorder.changes[0].Before))
	assert.Equal(t, want, string(recorder.changes[0].After))

	again, err := New(Options{Fix: true, Write: true}, nil).Run(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 2, again.Validated)
	assert.Zero(t, again.Repaired)
	assert.Empty(t, again.Written)
}

func TestRunDiffOnly(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.md", twoBlocks)

	report, err := New(Options{Fix: true, Diff: true}, nil).Run(context.Background(), []string{doc})
	require.NoError(t, err)

	require.Len(t, report.Diffs, 1)
	assert.Contains(t, report.Diffs[0].Diff, "+}")
	assert.Equal(t, twoBlocks, readFile(t, doc))
}

func TestRunWholeDiagramFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "flow.mmd", "graph TD\n    A[x] --> B(y\n")

	report, err := New(Options{Fix: true, Write: true}, nil).Run(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, "graph TD\n    A[x] --> B(y\n)\n", readFile(t, path))
}

func TestRunNestedBlockIsNotRewritten(t *testing.T) {
	dir := t.TempDir()
	content := "> ```mermaid\n> graph TD\n>     A[x] --> B(y\n> ```\n"
	doc := writeFile(t, dir, "quote.md", content)

	report, err := New(Options{Fix: true, Write: true}, nil).Run(context.Background(), []string{doc})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Repaired)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Message, "cannot be rewritten in place")
	assert.Equal(t, content, readFile(t, doc))
}

func TestRunUnmatchedFenceIsAnIssue(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "open.md", "# Doc\n\n```mermaid\ngraph TD\n    A[x] --> B[y]\n")

	report, err := New(Options{}, nil).Run(context.Background(), []string{dir})
	require.NoError(t, err)

	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Message, "line 3")
	assert.True(t, report.OK(false))
	assert.False(t, report.OK(true))
}

func TestRunMissingPath(t *testing.T) {
	_, err := New(Options{}, nil).Run(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestRunCanceledContextSkipsFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", twoBlocks)
	writeFile(t, dir, "b.md", twoBlocks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := New(Options{Jobs: 1}, nil).Run(ctx, []string{dir})
	require.NoError(t, err)

	assert.Zero(t, report.Total)
	require.Len(t, report.Issues, 2)
	assert.Contains(t, report.Issues[0].Message, "skipped")
}

func TestRunManyFilesInParallel(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.md", "b.md", "c.md", "d/e.md", "d/f.md"} {
		writeFile(t, dir, name, twoBlocks)
	}

	var (
		mu    sync.Mutex
		calls [][2]int
	)
	d := New(Options{Jobs: 3}, nil)
	d.SetProgressCallback(func(current, total int) {
		mu.Lock()
		calls = append(calls, [2]int{current, total})
		mu.Unlock()
	})
	report, err := d.Run(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, 5, report.Files)
	assert.Equal(t, 10, report.Total)
	assert.Equal(t, 5, report.Failed)
	for i := 1; i < len(report.Failures); i++ {
		assert.Less(t, report.Failures[i-1].File, report.Failures[i].File)
	}
	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int{5, 5}, calls[len(calls)-1])
}

func TestRunContent(t *testing.T) {
	report, err := New(Options{Fix: true, Write: true}, nil).RunContent(context.Background(), "<stdin>", []byte(twoBlocks))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 2, report.Validated)
	assert.Equal(t, 1, report.Repaired)
	assert.Empty(t, report.Written)
}

func TestRunExportsDiagrams(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docs/guide.md", twoBlocks)
	out := filepath.Join(t.TempDir(), "extracted")

	_, err := New(Options{ExtractDir: out}, nil).Run(context.Background(), []string{filepath.Join(dir, "docs")})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "guide_diagram_1.mmd"))
	assert.FileExists(t, filepath.Join(out, "guide_diagram_2.mmd"))
	assert.FileExists(t, filepath.Join(out, export.SummaryFile))
}
