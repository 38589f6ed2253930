// Package render provides the chromedp-backed browser session used to walk
// and extract the recipe site.
package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls session behavior.
type Config struct {
	UserAgent string
	// NavTimeout bounds every navigation, click dispatch, and DOM snapshot
	// so a stuck page cannot stall the run.
	NavTimeout time.Duration
	// Settle is the post-render wait before the DOM is snapshotted; the
	// site populates listing tiles shortly after document ready.
	Settle time.Duration
	// DismissSelector, when set, is clicked best-effort after the first
	// navigation (cookie banner).
	DismissSelector string
}

func (c Config) navTimeout() time.Duration {
	if c.NavTimeout > 0 {
		return c.NavTimeout
	}
	return 45 * time.Second
}

// Session drives one headless Chrome browser context. It implements
// scraper.Session and must not be shared across goroutines; every worker
// creates its own.
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	cfg           Config
	logger        *zap.Logger
	dismissed     bool
}

// NewSession launches a browser context. Close must be called to release it.
func NewSession(cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.WindowSize(1920, 1080),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &Session{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		cfg:           cfg,
		logger:        logger,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (s *Session) Close(_ context.Context) error {
	s.browserCancel()
	s.allocCancel()
	return nil
}

// Navigate loads url, waits for the document to render, and returns a
// queryable snapshot of the DOM.
func (s *Session) Navigate(ctx context.Context, url string) (*goquery.Document, error) {
	taskCtx, cancel := s.taskContext(ctx)
	defer cancel()

	actions := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.cfg.Settle > 0 {
		actions = append(actions, chromedp.Sleep(s.cfg.Settle))
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	s.maybeDismiss(taskCtx)
	return s.snapshot(taskCtx)
}

// Click dispatches element.click() via script on the first match, bypassing
// native interactability checks. The pagination control is not reliably
// activatable through a trusted click.
func (s *Session) Click(ctx context.Context, selector string) error {
	taskCtx, cancel := s.taskContext(ctx)
	defer cancel()

	script := fmt.Sprintf(
		`(function(){var el=document.querySelector(%q);if(!el){return false}el.click();return true})()`,
		selector,
	)
	var clicked bool
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("dispatch click %q: %w", selector, err)
	}
	if !clicked {
		return fmt.Errorf("dispatch click %q: element not found", selector)
	}
	return nil
}

// Document waits for the current page to settle and snapshots the DOM again.
// Used after Click to pick up the newly rendered listing page.
func (s *Session) Document(ctx context.Context) (*goquery.Document, error) {
	taskCtx, cancel := s.taskContext(ctx)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.cfg.Settle > 0 {
		actions = append(actions, chromedp.Sleep(s.cfg.Settle))
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("wait for page: %w", err)
	}
	return s.snapshot(taskCtx)
}

func (s *Session) snapshot(taskCtx context.Context) (*goquery.Document, error) {
	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("snapshot dom: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse dom: %w", err)
	}
	return doc, nil
}

// maybeDismiss clicks the configured dismiss control once per session. The
// banner only shows on the first page, and its absence is not an error.
func (s *Session) maybeDismiss(taskCtx context.Context) {
	if s.dismissed || s.cfg.DismissSelector == "" {
		return
	}
	s.dismissed = true
	script := fmt.Sprintf(
		`(function(){var el=document.querySelector(%q);if(el){el.click()}})()`,
		s.cfg.DismissSelector,
	)
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(script, nil)); err != nil {
		s.logger.Debug("dismiss control click failed", zap.Error(err))
	}
}

func (s *Session) taskContext(ctx context.Context) (context.Context, context.CancelFunc) {
	taskCtx, cancelTimeout := context.WithTimeout(s.browserCtx, s.cfg.navTimeout())
	stop := forwardCancel(ctx, cancelTimeout)
	return taskCtx, func() {
		stop()
		cancelTimeout()
	}
}

// forwardCancel propagates cancellation from the caller's context into the
// browser-derived task context.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
