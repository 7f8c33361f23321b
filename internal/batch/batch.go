// Package batch runs the diagram engine over a set of documents.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/mermaidcheck/internal/export"
	"github.com/sokinpui/mermaidcheck/internal/fs"
	"github.com/sokinpui/mermaidcheck/internal/links"
	"github.com/sokinpui/mermaidcheck/internal/logging"
	"github.com/sokinpui/mermaidcheck/internal/parser"
	"github.com/sokinpui/mermaidcheck/internal/patcher"
	"github.com/sokinpui/mermaidcheck/internal/state"
	"github.com/sokinpui/mermaidcheck/mermaid"
	"github.com/sokinpui/mermaidcheck/model"
)

// Options configures a Driver.
type Options struct {
	// Extensions selects files when walking directories.
	Extensions []string
	// Jobs bounds the number of files processed at once. Zero means GOMAXPROCS.
	Jobs int
	// Timeout is a wall-clock budget for the whole run. Zero means none.
	Timeout  time.Duration
	Validate mermaid.Options

	// Fix enables the repair pass.
	Fix bool
	// Write saves repaired blocks back into their documents.
	Write bool
	// Diff records a unified diff of every document a write would change.
	Diff bool
	// EscapeLabels adds label escaping to the repair pass.
	EscapeLabels bool

	// ExtractDir, when set, receives every diagram as a .mmd file.
	ExtractDir string
	// Links enables the link checker when non-nil.
	Links *links.Options
}

// Recorder keeps the history of files written by a run.
type Recorder interface {
	Record(changes []state.Change) error
}

// ProgressUpdate is called as files complete.
type ProgressUpdate func(current, total int)

// Driver validates and optionally repairs every diagram of a set of files.
type Driver struct {
	opts     Options
	logger   *zap.Logger
	recorder Recorder
	progress ProgressUpdate
}

// New creates a Driver. A nil logger discards diagnostics.
func New(opts Options, logger *zap.Logger) *Driver {
	logger = logging.OrNop(logger)
	return &Driver{opts: opts, logger: logger}
}

// SetRecorder sets where written files are recorded for undo.
func (d *Driver) SetRecorder(r Recorder) {
	d.recorder = r
}

// SetProgressCallback sets a function to be called for progress updates.
func (d *Driver) SetProgressCallback(cb ProgressUpdate) {
	d.progress = cb
}

// fileResult is everything one document contributes to the report.
type fileResult struct {
	file      string
	processed bool

	diagrams []string
	total    int
	valid    int
	failures []model.Failure
	repairs  []model.Repair
	issues   []model.FileIssue

	content []byte
	updated []byte
	diff    string
	written bool
}

// Run discovers documents under paths and processes them on a bounded pool.
// Per-file problems become report entries; the returned error is reserved
// for failures of the run itself.
func (d *Driver) Run(ctx context.Context, paths []string) (*model.Report, error) {
	files, err := fs.Discover(paths, d.opts.Extensions)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("discovered files", zap.Int("count", len(files)))

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	jobs := d.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]fileResult, len(files))
	var (
		mu   sync.Mutex
		done int
	)
	d.report(0, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(files))))
	for i, path := range files {
		g.Go(func() error {
			defer func() {
				mu.Lock()
				done++
				d.report(done, len(files))
				mu.Unlock()
			}()

			select {
			case <-gctx.Done():
				results[i] = fileResult{
					file:   path,
					issues: []model.FileIssue{{File: path, Message: "skipped: " + gctx.Err().Error()}},
				}
				return nil
			default:
			}
			results[i] = d.processFile(path)
			return nil
		})
	}
	_ = g.Wait()

	return d.finish(ctx, results)
}

// RunContent processes a single in-memory document named name. Nothing is
// written back, since there is no file to write to.
func (d *Driver) RunContent(ctx context.Context, name string, content []byte) (*model.Report, error) {
	res := d.safeProcess(name, content, false)
	return d.finish(ctx, []fileResult{res})
}

func (d *Driver) report(current, total int) {
	if d.progress != nil {
		d.progress(current, total)
	}
}

func (d *Driver) processFile(path string) fileResult {
	content, err := fs.ReadFile(path)
	if err != nil {
		d.logger.Warn("could not read file", zap.String("file", path), zap.Error(err))
		return fileResult{
			file:   path,
			issues: []model.FileIssue{{File: path, Message: err.Error()}},
		}
	}
	return d.safeProcess(path, content, true)
}

// safeProcess downgrades a panic while processing one document to a file
// issue so the rest of the batch completes.
func (d *Driver) safeProcess(name string, content []byte, writable bool) (res fileResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while processing file", zap.String("file", name), zap.Any("panic", r))
			res = fileResult{
				file:   name,
				issues: []model.FileIssue{{File: name, Message: fmt.Sprintf("internal error: %v", r)}},
			}
		}
	}()
	return d.process(name, content, writable)
}

func (d *Driver) process(name string, content []byte, writable bool) fileResult {
	res := fileResult{file: name, processed: true, content: content}

	var blocks []mermaid.Block
	if fs.IsDiagramFile(name) {
		blocks = append(blocks, mermaid.Whole(content, name))
	} else {
		if scan := parser.ScanFences(content); !scan.Matched() {
			res.issues = append(res.issues, model.FileIssue{
				File:    name,
				Message: fmt.Sprintf("unmatched code fence opened at line %d", scan.UnclosedLine),
			})
		}
		for b := range mermaid.Extract(content, name) {
			blocks = append(blocks, b)
		}
	}

	var replacements []patcher.Replacement
	for _, b := range blocks {
		res.total++
		text, ok := d.check(b, &res)
		res.diagrams = append(res.diagrams, text)
		if !ok || text == b.Text {
			continue
		}
		if !b.Span.Writable {
			if d.opts.Write || d.opts.Diff {
				res.issues = append(res.issues, model.FileIssue{
					File:    name,
					Message: fmt.Sprintf("block %d at line %d is nested and cannot be rewritten in place", b.Index, b.Line),
				})
			}
			continue
		}
		replacements = append(replacements, patcher.Replacement{Start: b.Span.Start, End: b.Span.End, Text: text})
	}
	d.logger.Debug("processed file",
		zap.String("file", name),
		zap.Int("diagrams", res.total),
		zap.Int("failed", len(res.failures)))

	if len(replacements) == 0 || !(d.opts.Write || d.opts.Diff) {
		return res
	}

	updated, err := patcher.Apply(content, replacements)
	if err != nil {
		res.issues = append(res.issues, model.FileIssue{File: name, Message: err.Error()})
		return res
	}
	if d.opts.Diff {
		diff, err := patcher.Unified(name, content, updated)
		if err != nil {
			res.issues = append(res.issues, model.FileIssue{File: name, Message: err.Error()})
		}
		res.diff = diff
	}
	if d.opts.Write && writable {
		if err := fs.WriteFileAtomic(name, updated); err != nil {
			d.logger.Warn("could not write file", zap.String("file", name), zap.Error(err))
			res.issues = append(res.issues, model.FileIssue{File: name, Message: err.Error()})
			return res
		}
		res.updated = updated
		res.written = true
	}
	return res
}

// check validates b, repairing it once when allowed. It returns the text
// the block should end up with and whether that text is valid.
func (d *Driver) check(b mermaid.Block, res *fileResult) (string, bool) {
	verdict := mermaid.ValidateWith(b, d.opts.Validate)
	if verdict.Valid {
		res.valid++
		return b.Text, true
	}

	final := verdict
	var fixes []string
	if d.opts.Fix && verdict.Reason.Repairable() {
		candidate := b.Text
		if rr := mermaid.Repair(b.Text); rr.Changed {
			candidate = rr.Text
			for _, id := range rr.Applied {
				fixes = append(fixes, string(id))
			}
		}
		if d.opts.EscapeLabels {
			if escaped := mermaid.EscapeLabels(candidate); escaped != candidate {
				candidate = escaped
				fixes = append(fixes, string(mermaid.FixEscapeLabels))
			}
		}
		if len(fixes) > 0 {
			candidate = keepTrailingNewline(b.Text, candidate)
			final = mermaid.ValidateWith(b.WithText(candidate), d.opts.Validate)
			if final.Valid {
				res.valid++
				res.repairs = append(res.repairs, model.Repair{
					File:       b.Source,
					BlockIndex: b.Index,
					Line:       b.Line,
					Reason:     string(verdict.Reason),
					Fixes:      fixes,
				})
				return candidate, true
			}
		}
	}

	res.failures = append(res.failures, model.Failure{
		File:       b.Source,
		BlockIndex: b.Index,
		Line:       b.Line,
		Reason:     string(final.Reason),
		Detail:     final.Detail,
	})
	return b.Text, false
}

// keepTrailingNewline makes sure text appended by a repair does not end up
// on the closing fence line.
func keepTrailingNewline(original, repaired string) string {
	if strings.HasSuffix(original, "\n") && !strings.HasSuffix(repaired, "\n") {
		return repaired + "\n"
	}
	return repaired
}

// finish aggregates per-file results, then runs the whole-run stages:
// history, export and links.
func (d *Driver) finish(ctx context.Context, results []fileResult) (*model.Report, error) {
	report := &model.Report{
		Files:          len(results),
		DiagramsByFile: make(map[string]int),
		Failures:       []model.Failure{},
	}

	var (
		changes []state.Change
		docs    []export.Document
		linkDoc []links.Document
	)
	for _, res := range results {
		report.Total += res.total
		report.Validated += res.valid
		report.Failed += len(res.failures)
		report.Repaired += len(res.repairs)
		report.Failures = append(report.Failures, res.failures...)
		report.Repairs = append(report.Repairs, res.repairs...)
		report.Issues = append(report.Issues, res.issues...)
		if res.total > 0 {
			report.DiagramsByFile[res.file] = res.total
		}
		if res.diff != "" {
			report.Diffs = append(report.Diffs, model.FileDiff{File: res.file, Diff: res.diff})
		}
		if res.written {
			report.Written = append(report.Written, res.file)
			changes = append(changes, state.Change{Path: res.file, Before: res.content, After: res.updated})
		}
		if !res.processed {
			continue
		}
		docs = append(docs, export.Document{File: res.file, Diagrams: res.diagrams})
		if !fs.IsDiagramFile(res.file) {
			content := res.content
			if res.written {
				content = res.updated
			}
			linkDoc = append(linkDoc, links.Document{File: res.file, Content: content})
		}
	}
	report.Sort()

	if len(changes) > 0 && d.recorder != nil {
		if err := d.recorder.Record(changes); err != nil {
			return report, fmt.Errorf("failed to record history: %w", err)
		}
	}

	if d.opts.ExtractDir != "" {
		summary, err := export.Write(d.opts.ExtractDir, docs)
		if err != nil {
			return report, err
		}
		d.logger.Debug("exported diagrams",
			zap.String("dir", d.opts.ExtractDir),
			zap.Int("diagrams", summary.TotalDiagrams))
	}

	if d.opts.Links != nil {
		report.Links = links.New(*d.opts.Links, d.logger).Check(ctx, linkDoc)
	}

	return report, nil
}
