// Package config loads mermaidcheck settings from an optional YAML or TOML
// file and the environment.
package config

import "time"

// Config holds settings that can be persisted per repository.
type Config struct {
	Check   Check   `yaml:"check" toml:"check"`
	Fix     Fix     `yaml:"fix" toml:"fix"`
	Links   Links   `yaml:"links" toml:"links"`
	Output  Output  `yaml:"output" toml:"output"`
	Logging Logging `yaml:"logging" toml:"logging"`
}

// Check configures discovery and validation.
type Check struct {
	Extensions         []string      `yaml:"extensions" toml:"extensions"`
	Jobs               int           `yaml:"jobs" toml:"jobs"`
	Timeout            time.Duration `yaml:"timeout" toml:"timeout"`
	IgnoreQuotedArrows bool          `yaml:"ignore_quoted_arrows" toml:"ignore_quoted_arrows"`
	Strict             bool          `yaml:"strict" toml:"strict"`
}

// Fix configures the repair pass and what happens to its output.
type Fix struct {
	Enabled      bool `yaml:"enabled" toml:"enabled"`
	Write        bool `yaml:"write" toml:"write"`
	EscapeLabels bool `yaml:"escape_labels" toml:"escape_labels"`
}

// Links configures the link checker.
type Links struct {
	Enabled     bool          `yaml:"enabled" toml:"enabled"`
	External    bool          `yaml:"external" toml:"external"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts" toml:"max_attempts"`
	UserAgent   string        `yaml:"user_agent" toml:"user_agent"`
}

// Output configures reporting.
type Output struct {
	Format     string `yaml:"format" toml:"format"`
	File       string `yaml:"file" toml:"file"`
	ExtractDir string `yaml:"extract_dir" toml:"extract_dir"`
}

// Logging configures the diagnostic logger.
type Logging struct {
	Verbose bool `yaml:"verbose" toml:"verbose"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Check: Check{
			Extensions: []string{".md", ".mmd", ".mermaid"},
		},
		Links: Links{
			Timeout:     10 * time.Second,
			MaxAttempts: 3,
			UserAgent:   "Mozilla/5.0 (compatible; mermaidcheck/1.0)",
		},
		Output: Output{
			Format: "console",
		},
	}
}
