// Package portal drives the land-register portal: browser sessions, the
// search-form flow and parsing of rendered pages.
package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the browser sessions created by a Provider.
type Config struct {
	Headless   bool
	UserAgent  string
	NavTimeout time.Duration
}

// Provider owns a chromedp exec allocator and hands out independent browser
// sessions, one per sourcing worker.
type Provider struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewProvider builds a Provider with a shared Chrome allocator.
func NewProvider(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("incognito", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("no-sandbox", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Provider{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close tears down the allocator and every browser spawned from it.
func (p *Provider) Close() {
	p.allocCancel()
}

// NewSession starts a fresh browser and warms it up so the first navigation
// does not pay the browser startup cost.
func (p *Provider) NewSession(ctx context.Context) (*Session, error) {
	browserCtx, browserCancel := chromedp.NewContext(p.allocator)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	select {
	case <-ctx.Done():
		browserCancel()
		return nil, fmt.Errorf("session startup canceled: %w", ctx.Err())
	default:
	}
	return &Session{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       p.cfg.NavTimeout,
	}, nil
}

// Session implements register.Session on top of a dedicated headless browser.
// Every operation runs under the configured per-attempt timeout.
type Session struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.browserCancel()
}

// Navigate loads the URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the selector is visible or the timeout fires.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// SendKeys types the value into the element matching the selector.
func (s *Session) SendKeys(ctx context.Context, selector string, value string) error {
	if err := s.run(ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("send keys %s: %w", selector, err)
	}
	return nil
}

// Text returns the rendered text of the element matching the selector.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var out string
	if err := s.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read text %s: %w", selector, err)
	}
	return out, nil
}

// Visible reports whether the selector matches a currently displayed element.
// Unlike WaitVisible it returns immediately, so callers can probe for
// elements that are usually absent.
func (s *Session) Visible(ctx context.Context, selector string) (bool, error) {
	var visible bool
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el !== null && el.offsetParent !== null; })()`,
		selector,
	)
	if err := s.run(ctx, chromedp.Evaluate(script, &visible)); err != nil {
		return false, fmt.Errorf("probe %s: %w", selector, err)
	}
	return visible, nil
}

// run executes the actions on the session browser under the per-attempt
// timeout, canceling early if the caller context finishes first.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithTimeout(s.browserCtx, s.timeout)
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if taskCtx.Err() != nil {
			return taskCtx.Err()
		}
		return err
	}
	return nil
}

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
