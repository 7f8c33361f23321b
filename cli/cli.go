package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/sokinpui/mermaidcheck/internal/config"
)

// Config holds the merged settings of one invocation.
type Config struct {
	config.Config

	// Paths are the files and directories to check. Empty means stdin or
	// the clipboard.
	Paths       []string
	ConfigFile  string
	Diff        bool
	Undo        bool
	Redo        bool
	NoAnimation bool
	// Watch re-runs the check whenever a document under Paths changes.
	Watch bool
}

// flagValues mirrors every flag before it is merged over the loaded config.
type flagValues struct {
	fix, write, diff, escapeLabels bool
	jobs                           int
	timeout                        time.Duration
	format, output, extractDir     string
	links, externalLinks           bool
	ignoreQuoted, strict           bool
	extensions                     []string
	configFile                     string
	verbose, noAnimation, watch    bool
	undo, redo                     bool
}

// ParseFlags parses the process arguments.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse defines and parses command-line flags using pflag, then layers the
// explicitly set ones over the YAML and environment configuration.
func Parse(args []string) (*Config, error) {
	fset := pflag.NewFlagSet("mermaidcheck", pflag.ContinueOnError)
	var v flagValues

	fset.BoolVarP(&v.fix, "fix", "f", false, "Repair failing diagrams and re-validate them.")
	fset.BoolVarP(&v.write, "write", "w", false, "Save repaired diagrams back into their documents (implies --fix).")
	fset.BoolVarP(&v.diff, "diff", "d", false, "Show a unified diff of every document a repair would change (implies --fix).")
	fset.BoolVar(&v.escapeLabels, "escape-labels", false, "Escape special characters in [...] labels as part of the repair.")
	fset.IntVarP(&v.jobs, "jobs", "j", 0, "Number of files checked in parallel (0 = number of CPUs).")
	fset.DurationVar(&v.timeout, "timeout", 0, "Wall-clock budget for the whole run, e.g. 30s (0 = none).")
	fset.StringVar(&v.format, "format", "console", "Report format: console, json or markdown.")
	fset.StringVarP(&v.output, "output", "o", "", "Write the report to a file instead of stdout.")
	fset.StringVar(&v.extractDir, "extract-dir", "", "Export every diagram to this directory as .mmd files.")
	fset.BoolVarP(&v.links, "links", "l", false, "Check that local markdown links resolve.")
	fset.BoolVar(&v.externalLinks, "external-links", false, "Also check http(s) links (implies --links).")
	fset.BoolVar(&v.ignoreQuoted, "ignore-quoted-arrows", false, "Ignore '--' inside quoted labels when checking arrows.")
	fset.BoolVar(&v.strict, "strict", false, "Fail on file issues and broken links too.")
	fset.StringSliceVarP(&v.extensions, "extension", "e", []string{}, "File extensions searched in directories (e.g., 'md', 'mmd').")
	fset.StringVarP(&v.configFile, "config", "c", config.DefaultPath(), "YAML or TOML configuration file.")
	fset.BoolVarP(&v.verbose, "verbose", "v", false, "Print diagnostic logs to stderr.")
	fset.BoolVar(&v.noAnimation, "no-animation", false, "Disable loading spinner and progress updates.")
	fset.BoolVar(&v.watch, "watch", false, "Re-run the check whenever a document changes.")

	// Mutually exclusive history group
	fset.BoolVarP(&v.undo, "undo", "u", false, "Undo the last write.")
	fset.BoolVarP(&v.redo, "redo", "r", false, "Redo the last undone write.")

	fset.Usage = func() { usage(os.Stderr, fset) }

	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if v.undo && v.redo {
		return nil, fmt.Errorf("error: --undo and --redo are mutually exclusive")
	}
	if v.watch && (v.undo || v.redo) {
		return nil, fmt.Errorf("error: --watch cannot be combined with --undo or --redo")
	}
	if v.watch && fset.NArg() == 0 {
		return nil, fmt.Errorf("error: --watch needs at least one path")
	}

	loaded, err := config.LoadFrom(v.configFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Config:      *loaded,
		Paths:       fset.Args(),
		ConfigFile:  v.configFile,
		Diff:        v.diff,
		Undo:        v.undo,
		Redo:        v.redo,
		NoAnimation: v.noAnimation,
		Watch:       v.watch,
	}
	merge(cfg, fset, &v)
	if err := config.Validate(&cfg.Config); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge copies the flags the user actually set over the loaded config.
func merge(cfg *Config, fset *pflag.FlagSet, v *flagValues) {
	set := fset.Changed

	if set("fix") {
		cfg.Fix.Enabled = v.fix
	}
	if set("write") {
		cfg.Fix.Write = v.write
	}
	if cfg.Fix.Write || cfg.Diff {
		cfg.Fix.Enabled = true
	}
	if set("escape-labels") {
		cfg.Fix.EscapeLabels = v.escapeLabels
	}
	if set("jobs") {
		cfg.Check.Jobs = v.jobs
	}
	if set("timeout") {
		cfg.Check.Timeout = v.timeout
	}
	if set("format") {
		cfg.Output.Format = v.format
	}
	if set("output") {
		cfg.Output.File = v.output
	}
	if set("extract-dir") {
		cfg.Output.ExtractDir = v.extractDir
	}
	if set("links") {
		cfg.Links.Enabled = v.links
	}
	if set("external-links") {
		cfg.Links.External = v.externalLinks
	}
	if cfg.Links.External {
		cfg.Links.Enabled = true
	}
	if set("ignore-quoted-arrows") {
		cfg.Check.IgnoreQuotedArrows = v.ignoreQuoted
	}
	if set("strict") {
		cfg.Check.Strict = v.strict
	}
	if set("extension") {
		cfg.Check.Extensions = v.extensions
	}
	if set("verbose") {
		cfg.Logging.Verbose = v.verbose
	}

	// Normalize extensions
	for i, ext := range cfg.Check.Extensions {
		if len(ext) > 0 && ext[0] != '.' {
			cfg.Check.Extensions[i] = "." + ext
		}
	}
}

func usage(w io.Writer, fset *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: mermaidcheck [flags] [path ...]")
	fmt.Fprintln(w, "\nValidate (and optionally repair) Mermaid diagrams in markdown files.")
	fmt.Fprintln(w, "With no paths, content is read from stdin (pipe) or the clipboard.")
	fmt.Fprintln(w, "\nExample: mermaidcheck --fix --write docs/")
	fmt.Fprintln(w, "\nFlags:")
	fmt.Fprint(w, fset.FlagUsages())
}
