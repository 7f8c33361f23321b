package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/sokinpui/mermaidcheck/cli"
	"github.com/sokinpui/mermaidcheck/internal/fs"
	"github.com/sokinpui/mermaidcheck/internal/logging"
	"github.com/sokinpui/mermaidcheck/internal/report"
	"github.com/sokinpui/mermaidcheck/internal/tui"
	"github.com/sokinpui/mermaidcheck/internal/ui"
	"github.com/sokinpui/mermaidcheck/internal/watch"
	"github.com/sokinpui/mermaidcheck/mermaidcheck"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := cli.ParseFlags()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Logging.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := mermaidcheck.New(cfg, logger)
	if cfg.Watch {
		return watchLoop(ctx, app, cfg, logger)
	}
	return checkOnce(ctx, app, cfg, logger, useTUI(cfg))
}

// checkOnce executes the app and prints its outcome. It returns the exit code.
func checkOnce(ctx context.Context, app *mermaidcheck.App, cfg *cli.Config, logger *zap.Logger, interactive bool) int {
	var (
		result mermaidcheck.Result
		err    error
	)
	if interactive {
		result, err = runTUI(ctx, app, cfg)
	} else {
		result, err = runPlain(ctx, app, cfg)
	}
	if err != nil {
		var e *mermaidcheck.DetailedError
		if errors.As(err, &e) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		logger.Debug("run failed", zap.Error(err))
		if result.Report == nil {
			ui.Error("Error: %v", err)
			return 1
		}
		ui.Warning("%v", err)
	}

	if result.Report == nil {
		return 0
	}
	if !interactive {
		if err := emit(cfg, result); err != nil {
			ui.Error("Error: %v", err)
			return 1
		}
	}
	if !result.Report.OK(cfg.Check.Strict) {
		return 1
	}
	return 0
}

// watchLoop checks once, then again after every batch of document changes
// until interrupted.
func watchLoop(ctx context.Context, app *mermaidcheck.App, cfg *cli.Config, logger *zap.Logger) int {
	checkOnce(ctx, app, cfg, logger, false)

	w, err := watch.New(cfg.Paths, cfg.Check.Extensions, logger)
	if err != nil {
		ui.Error("Error: %v", err)
		return 1
	}
	defer w.Close()

	ui.Info("Watching for changes. Press Ctrl+C to stop.")
	err = w.Run(ctx, func(ctx context.Context, changed []string) {
		ui.Header("--- %d file(s) changed ---", len(changed))
		for _, path := range changed {
			ui.Path("%s", fs.Relativize(path))
		}
		checkOnce(ctx, app, cfg, logger, false)
	})
	if err != nil {
		ui.Error("Error: %v", err)
		return 1
	}
	return 0
}

// useTUI reports whether the interactive front end can draw the console
// report itself.
func useTUI(cfg *cli.Config) bool {
	return !cfg.NoAnimation &&
		cfg.Output.File == "" &&
		cfg.Output.Format == report.FormatConsole &&
		term.IsTerminal(int(os.Stdout.Fd())) &&
		term.IsTerminal(int(os.Stderr.Fd()))
}

func runTUI(ctx context.Context, app *mermaidcheck.App, cfg *cli.Config) (mermaidcheck.Result, error) {
	model := tui.New(ctx, app, cfg.Check.Strict)
	p := tea.NewProgram(model)
	app.SetProgressCallback(func(current, total int) {
		p.Send(tui.ProgressMsg{Current: current, Total: total})
	})

	final, err := p.Run()
	if err != nil {
		return mermaidcheck.Result{}, fmt.Errorf("error running program: %w", err)
	}
	return final.(tui.Model).Result()
}

func runPlain(ctx context.Context, app *mermaidcheck.App, cfg *cli.Config) (mermaidcheck.Result, error) {
	var bar *ui.ProgressBar
	if !cfg.NoAnimation && term.IsTerminal(int(os.Stderr.Fd())) {
		bar = ui.NewProgressBar(0, "Checking")
		app.SetProgressCallback(bar.Set)
	}

	result, err := app.Execute(ctx)
	if bar != nil {
		bar.Finish()
	}
	if result.Summary != nil {
		fmt.Fprint(os.Stderr, report.Summary(*result.Summary))
	}
	return result, err
}

// emit writes the report in the configured format to stdout or the output file.
func emit(cfg *cli.Config, result mermaidcheck.Result) error {
	out, err := report.Render(cfg.Output.Format, result.Report, cfg.Check.Strict, time.Now())
	if err != nil {
		return err
	}
	if cfg.Output.File == "" {
		if cfg.Output.Format == report.FormatMarkdown && term.IsTerminal(int(os.Stdout.Fd())) {
			width, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				width = 0
			}
			if rendered, err := report.Terminal(out, width); err == nil {
				out = rendered
			}
		}
		_, err := fmt.Fprint(os.Stdout, out)
		return err
	}
	if err := fs.WriteFileAtomic(cfg.Output.File, []byte(out)); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	ui.Success("Report written to %s", cfg.Output.File)
	return nil
}
