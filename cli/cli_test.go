package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]string{"--config", noConfig(t), "docs", "README.md"})
	require.NoError(t, err)

	assert.Equal(t, []string{"docs", "README.md"}, cfg.Paths)
	assert.False(t, cfg.Fix.Enabled)
	assert.Equal(t, "console", cfg.Output.Format)
	assert.Equal(t, []string{".md", ".mmd", ".mermaid"}, cfg.Check.Extensions)
}

func TestParseWriteImpliesFix(t *testing.T) {
	cfg, err := Parse([]string{"--config", noConfig(t), "-w"})
	require.NoError(t, err)
	assert.True(t, cfg.Fix.Enabled)
	assert.True(t, cfg.Fix.Write)

	cfg, err = Parse([]string{"--config", noConfig(t), "--diff"})
	require.NoError(t, err)
	assert.True(t, cfg.Fix.Enabled)
	assert.False(t, cfg.Fix.Write)
}

func TestParseExternalLinksImpliesLinks(t *testing.T) {
	cfg, err := Parse([]string{"--config", noConfig(t), "--external-links"})
	require.NoError(t, err)
	assert.True(t, cfg.Links.Enabled)
	assert.True(t, cfg.Links.External)
}

func TestParseNormalizesExtensions(t *testing.T) {
	cfg, err := Parse([]string{"--config", noConfig(t), "-e", "md,.mmd"})
	require.NoError(t, err)
	assert.Equal(t, []string{".md", ".mmd"}, cfg.Check.Extensions)
}

func TestParseFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yaml := "check:\n  jobs: 4\n  timeout: 1m\noutput:\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Parse([]string{"--config", path, "--format", "markdown", "--timeout", "5s"})
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Check.Jobs, "unset flags keep the file value")
	assert.Equal(t, 5*time.Second, cfg.Check.Timeout)
	assert.Equal(t, "markdown", cfg.Output.Format)
}

func TestParseRejectsUndoWithRedo(t *testing.T) {
	_, err := Parse([]string{"--config", noConfig(t), "--undo", "--redo"})
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	_, err := Parse([]string{"--config", noConfig(t), "--format", "xml"})
	assert.Error(t, err)
}

func TestParseWatch(t *testing.T) {
	cfg, err := Parse([]string{"--config", noConfig(t), "--watch", "docs"})
	require.NoError(t, err)
	assert.True(t, cfg.Watch)

	_, err = Parse([]string{"--config", noConfig(t), "--watch"})
	assert.ErrorContains(t, err, "needs at least one path")

	_, err = Parse([]string{"--config", noConfig(t), "--watch", "--undo", "docs"})
	assert.Error(t, err)
}
