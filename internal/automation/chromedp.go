package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// SessionOptions configure the browser launched for a run.
type SessionOptions struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
}

// Session is a chromedp-backed Driver. One session is held for the
// lifetime of a run and reused across all exam attempts.
type Session struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	logger        *slog.Logger
}

var _ Driver = (*Session)(nil)

// NewSession launches a browser. The session's lifetime is independent of
// the contexts later passed to Driver methods; Close shuts it down.
func NewSession(ctx context.Context, opts SessionOptions, logger *slog.Logger) (*Session, error) {
	width, height := opts.WindowWidth, opts.WindowHeight
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(width, height),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("browser started", "headless", opts.Headless, "width", width, "height", height)
	return &Session{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		logger:        logger,
	}, nil
}

// Navigate opens the target page and waits for it to load.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("navigating", "url", url)
	if err := s.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForElement waits until the selector matches a visible element.
func (s *Session) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	s.logger.Debug("waiting for element", "selector", selector, "timeout", timeout)
	err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Selector: selector, Timeout: timeout}
	}
	return err
}

// CaptureElement screenshots the first element matching the selector.
func (s *Session) CaptureElement(ctx context.Context, selector string) ([]byte, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, 0, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, &NotFoundError{Selector: selector}
	}

	var buf []byte
	if err := s.run(ctx, 0, chromedp.Screenshot(selector, &buf, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to capture %q: %w", selector, err)
	}
	return buf, nil
}

// FillField sets the value of a form field.
func (s *Session) FillField(ctx context.Context, selector, value string) error {
	s.logger.Debug("filling field", "selector", selector, "value", value)
	if err := s.run(ctx, 0, chromedp.SetValue(selector, value, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to fill %q: %w", selector, err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.logger.Debug("clicking", "selector", selector)
	if err := s.run(ctx, 0, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.cancelBrowser()
	s.cancelAlloc()
	s.logger.Info("browser closed")
}

// run executes actions on the session's browser context, bounded by the
// optional timeout and cancelled early if the caller's context ends.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx := s.browserCtx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}
