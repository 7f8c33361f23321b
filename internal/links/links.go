// Package links checks that markdown links point somewhere real.
package links

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sokinpui/mermaidcheck/internal/fs"
	"github.com/sokinpui/mermaidcheck/internal/logging"
	"github.com/sokinpui/mermaidcheck/internal/parser"
	"github.com/sokinpui/mermaidcheck/model"
)

// Options configures a Checker.
type Options struct {
	// External enables HEAD requests for http(s) links. Without it they are
	// counted as skipped.
	External    bool
	Timeout     time.Duration
	MaxAttempts int
	UserAgent   string
	// Jobs bounds concurrent requests. Zero means 8.
	Jobs int
}

// Document is a markdown file to check.
type Document struct {
	File    string
	Content []byte
}

// Checker resolves local links against the filesystem and probes external
// ones over HTTP.
type Checker struct {
	opts       Options
	client     *http.Client
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// New creates a Checker. A nil logger discards diagnostics.
func New(opts Options, logger *zap.Logger) *Checker {
	logger = logging.OrNop(logger)
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Jobs <= 0 {
		opts.Jobs = 8
	}
	return &Checker{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

type target struct {
	file string
	line int
	url  string
}

// Check examines every link of docs. Files whose path mentions "template"
// and pure #anchor links are skipped.
func (c *Checker) Check(ctx context.Context, docs []Document) *model.LinkSummary {
	summary := &model.LinkSummary{Failures: []model.LinkFailure{}}
	var external []target

	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc.File), "template") {
			c.logger.Debug("skipping template file", zap.String("file", doc.File))
			continue
		}
		found, err := parser.ExtractLinks(doc.Content)
		if err != nil {
			c.logger.Warn("could not parse links", zap.String("file", doc.File), zap.Error(err))
			continue
		}
		for _, l := range found {
			t := target{file: doc.File, line: l.Line, url: l.URL}
			switch kindOf(l.URL) {
			case kindAnchor, kindOther:
				summary.Skipped++
			case kindExternal:
				if !c.opts.External {
					summary.Skipped++
					continue
				}
				external = append(external, t)
			case kindLocal:
				summary.Checked++
				if err := checkLocal(t); err != nil {
					summary.Failures = append(summary.Failures, failure(t, false, err))
				} else {
					summary.Passed++
				}
			}
		}
	}

	results := make([]error, len(external))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Jobs)
	for i, t := range external {
		g.Go(func() error {
			results[i] = c.checkExternal(gctx, t.url)
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range external {
		summary.Checked++
		if results[i] != nil {
			summary.Failures = append(summary.Failures, failure(t, true, results[i]))
		} else {
			summary.Passed++
		}
	}
	return summary
}

func failure(t target, external bool, err error) model.LinkFailure {
	return model.LinkFailure{
		File:     t.file,
		Line:     t.line,
		URL:      t.url,
		External: external,
		Error:    err.Error(),
	}
}

type kind int

const (
	kindLocal kind = iota
	kindAnchor
	kindExternal
	kindOther
)

func kindOf(raw string) kind {
	switch {
	case raw == "" || strings.HasPrefix(raw, "#"):
		return kindAnchor
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return kindExternal
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		// mailto:, ftp: and friends
		return kindOther
	}
	return kindLocal
}

// checkLocal resolves a relative link against the directory of its file.
func checkLocal(t target) error {
	raw := t.url
	if i := strings.IndexAny(raw, "#?"); i >= 0 {
		raw = raw[:i]
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}

	var path string
	if strings.HasPrefix(raw, "/") {
		path = filepath.FromSlash(strings.TrimPrefix(raw, "/"))
	} else {
		path = filepath.Join(filepath.Dir(t.file), filepath.FromSlash(raw))
	}
	if !fs.Exists(path) {
		return fmt.Errorf("file not found: %s", path)
	}
	return nil
}

// errStatus is an HTTP status that counts as a broken link.
type errStatus int

func (e errStatus) Error() string {
	return fmt.Sprintf("HTTP %d", int(e))
}

func (c *Checker) checkExternal(ctx context.Context, rawURL string) error {
	attempt := 0
	operation := func() (int, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
		if err != nil {
			return 0, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			c.logger.Debug("link request failed", zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Error(err))
			return 0, err
		}
		resp.Body.Close()

		code := resp.StatusCode
		switch {
		case code < 400:
			return code, nil
		case code == http.StatusTooManyRequests || code >= 500:
			c.logger.Debug("retryable link status", zap.String("url", rawURL), zap.Int("status", code))
			return 0, errStatus(code)
		default:
			return 0, backoff.Permanent(errStatus(code))
		}
	}

	tries, err := safecast.Conv[uint](c.opts.MaxAttempts)
	if err != nil {
		return err
	}
	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(tries),
	)
	if err == nil {
		return nil
	}
	var status errStatus
	if errors.As(err, &status) {
		return status
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("timeout")
	}
	return fmt.Errorf("connection error: %w", err)
}
