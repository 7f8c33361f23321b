package mermaidcheck

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/sokinpui/mermaidcheck/cli"
	"github.com/sokinpui/mermaidcheck/internal/batch"
	"github.com/sokinpui/mermaidcheck/internal/config"
	"github.com/sokinpui/mermaidcheck/internal/fs"
	"github.com/sokinpui/mermaidcheck/internal/links"
	"github.com/sokinpui/mermaidcheck/internal/logging"
	"github.com/sokinpui/mermaidcheck/internal/source"
	"github.com/sokinpui/mermaidcheck/internal/state"
	"github.com/sokinpui/mermaidcheck/mermaid"
	"github.com/sokinpui/mermaidcheck/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// Result is the outcome of Execute. Exactly one of Report and Summary is set.
type Result struct {
	Report  *model.Report
	Summary *model.Summary
}

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	logger           *zap.Logger
	sourceProvider   *source.SourceProvider
	newStateManager  func() (*state.Manager, error)
	progressCallback ProgressUpdate
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance. A nil logger discards diagnostics.
func New(cfg *cli.Config, logger *zap.Logger) *App {
	logger = logging.OrNop(logger)
	return &App{
		cfg:             cfg,
		logger:          logger,
		sourceProvider:  source.New(),
		newStateManager: state.New,
	}
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute(ctx context.Context) (result Result, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.history((*state.Manager).Undo)
	case a.cfg.Redo:
		return a.history((*state.Manager).Redo)
	default:
		return a.check(ctx)
	}
}

// check runs the batch driver over the configured paths, or over stdin or
// clipboard content when there are none.
func (a *App) check(ctx context.Context) (Result, error) {
	driver := batch.New(driverOptions(&a.cfg.Config, a.cfg.Diff), a.logger)
	if a.progressCallback != nil {
		driver.SetProgressCallback(batch.ProgressUpdate(a.progressCallback))
	}

	if len(a.cfg.Paths) == 0 {
		content, err := a.sourceProvider.GetContent()
		if err != nil {
			return Result{}, err
		}
		if content == "" {
			return Result{Summary: &model.Summary{Message: "Source is empty. Nothing to check."}}, nil
		}
		report, err := driver.RunContent(ctx, source.Name, []byte(content))
		return Result{Report: report}, err
	}

	if a.cfg.Fix.Write {
		manager, err := a.newStateManager()
		if err != nil {
			return Result{}, fmt.Errorf("failed to initialize state manager: %w", err)
		}
		driver.SetRecorder(manager)
	}

	report, err := driver.Run(ctx, a.cfg.Paths)
	if err != nil && report == nil {
		return Result{}, err
	}
	return Result{Report: report}, err
}

func (a *App) history(op func(*state.Manager) (model.Summary, error)) (Result, error) {
	manager, err := a.newStateManager()
	if err != nil {
		return Result{}, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	summary, err := op(manager)
	relativizeSummaryPaths(&summary)
	return Result{Summary: &summary}, err
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the current working directory for cleaner display.
func relativizeSummaryPaths(summary *model.Summary) {
	for i, p := range summary.Restored {
		summary.Restored[i] = fs.Relativize(p)
	}
	for i, p := range summary.Failed {
		summary.Failed[i] = fs.Relativize(p)
	}
}

func driverOptions(cfg *config.Config, diff bool) batch.Options {
	opts := batch.Options{
		Extensions:   cfg.Check.Extensions,
		Jobs:         cfg.Check.Jobs,
		Timeout:      cfg.Check.Timeout,
		Validate:     mermaid.Options{IgnoreQuoted: cfg.Check.IgnoreQuotedArrows},
		Fix:          cfg.Fix.Enabled,
		Write:        cfg.Fix.Write,
		Diff:         diff,
		EscapeLabels: cfg.Fix.EscapeLabels,
		ExtractDir:   cfg.Output.ExtractDir,
	}
	if cfg.Links.Enabled {
		opts.Links = &links.Options{
			External:    cfg.Links.External,
			Timeout:     cfg.Links.Timeout,
			MaxAttempts: cfg.Links.MaxAttempts,
			UserAgent:   cfg.Links.UserAgent,
			Jobs:        cfg.Check.Jobs,
		}
	}
	return opts
}
