// Package fetch implements the tiered URL acquisition chain: a rendered
// browser fetch with retry, a static HTTP fallback, and a terminal error
// artifact.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrBotBlocked indicates the rendered page title suggests the request was
// intercepted by bot protection. The rendered HTML may still accompany it.
var ErrBotBlocked = errors.New("page reports blocked or forbidden")

// SessionConfig controls the shared headless browser session.
type SessionConfig struct {
	UserAgent   string
	Settle      time.Duration
	ScrollPause time.Duration
}

// Session owns one headless Chrome instance. Each RenderPage call opens a
// disposable tab context that is closed before the call returns; the session
// itself lives for the life of the process.
type Session struct {
	cfg             SessionConfig
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
}

// NewSession launches headless Chrome and verifies it is usable.
func NewSession(cfg SessionConfig, logger *zap.Logger) (*Session, error) {
	if cfg.Settle <= 0 {
		cfg.Settle = 2 * time.Second
	}
	if cfg.ScrollPause <= 0 {
		cfg.ScrollPause = time.Second
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Session{
		cfg:             cfg,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
	}, nil
}

// Close tears down the browser and its allocator.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.browserCancel()
	s.allocatorCancel()
}

// RenderPage navigates a fresh tab to url, waits for dynamic content to
// settle, scrolls down and back up to trigger lazy loading, and returns the
// rendered DOM. When the page title reports blocking, the HTML is returned
// alongside ErrBotBlocked so callers can decide whether to retry or accept.
func (s *Session) RenderPage(ctx context.Context, url string, timeout time.Duration) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	var (
		title string
		html  string
	)
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.Sleep(s.cfg.Settle),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight/2);`, nil),
		chromedp.Sleep(s.cfg.ScrollPause),
		chromedp.Evaluate(`window.scrollTo(0, 0);`, nil),
		chromedp.Sleep(s.cfg.ScrollPause),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}

	if titleLooksBlocked(title) {
		return html, fmt.Errorf("title %q: %w", title, ErrBotBlocked)
	}
	return html, nil
}

func titleLooksBlocked(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "blocked") || strings.Contains(lower, "forbidden")
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
