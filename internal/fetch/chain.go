package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scribehq/docharvest/internal/document"
	"github.com/scribehq/docharvest/internal/metrics"
)

// ChainConfig controls retry behavior across the chain's tiers.
type ChainConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	NavTimeout   time.Duration
}

// Chain acquires a URL's HTML through ordered fallback tiers: rendered
// browser fetch with bounded retry, then a static HTTP fetch, then a
// synthetic error body so the caller always receives page content.
type Chain struct {
	cfg      ChainConfig
	renderer document.PageRenderer
	static   document.StaticFetcher
	logger   *zap.Logger
	sleep    func(time.Duration)
}

// NewChain builds a Chain over the given tiers.
func NewChain(cfg ChainConfig, renderer document.PageRenderer, static document.StaticFetcher, logger *zap.Logger) *Chain {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 5 * time.Second
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	return &Chain{
		cfg:      cfg,
		renderer: renderer,
		static:   static,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Fetch runs the tiers for one URL and always returns a result. The Method
// tag identifies which tier produced the HTML; MethodErrorArtifact carries a
// diagnostic body naming both failure causes.
func (c *Chain) Fetch(ctx context.Context, url string) document.FetchResult {
	html, renderErr := c.renderWithRetry(ctx, url)
	if renderErr == nil {
		return document.FetchResult{URL: url, HTML: html, Method: document.MethodRendered}
	}
	c.logger.Warn("rendered fetch exhausted, falling back to static",
		zap.String("url", url), zap.Error(renderErr))

	staticHTML, staticErr := c.static.FetchHTML(ctx, url)
	if staticErr == nil {
		return document.FetchResult{URL: url, HTML: staticHTML, Method: document.MethodStaticFallback}
	}
	c.logger.Warn("static fetch failed, producing error artifact",
		zap.String("url", url), zap.Error(staticErr))

	body := fmt.Sprintf("Failed to scrape URL: %s - Rendered fetch error: %v - Static fallback error: %v",
		url, renderErr, staticErr)
	return document.FetchResult{URL: url, HTML: body, Method: document.MethodErrorArtifact}
}

// renderWithRetry drives the rendered tier for up to MaxAttempts attempts,
// sleeping RetryBackoff between attempts. A bot-block on the final attempt is
// accepted as-is when HTML was still produced.
func (c *Chain) renderWithRetry(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		html, err := c.renderer.RenderPage(ctx, url, c.cfg.NavTimeout)
		if err == nil {
			return html, nil
		}
		lastErr = err

		if errors.Is(err, ErrBotBlocked) && attempt == c.cfg.MaxAttempts && html != "" {
			c.logger.Warn("accepting blocked page on final attempt", zap.String("url", url))
			return html, nil
		}

		c.logger.Debug("rendered fetch attempt failed",
			zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < c.cfg.MaxAttempts {
			metrics.ObserveFetchRetry(url)
			c.sleep(c.cfg.RetryBackoff)
		}
	}
	return "", lastErr
}
