package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// StaticConfig controls the static HTTP tier.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// StaticFetcher performs one-shot HTTP GETs using a Colly collector.
// Non-2xx responses surface as errors; there is no internal retry.
type StaticFetcher struct {
	cfg           StaticConfig
	baseCollector *colly.Collector
}

// NewStaticFetcher builds a StaticFetcher.
func NewStaticFetcher(cfg StaticConfig) *StaticFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &StaticFetcher{cfg: cfg, baseCollector: c}
}

// FetchHTML executes a single HTTP GET and returns the response body.
func (f *StaticFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	var (
		body     string
		fetchErr error
	)

	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			fetchErr = fmt.Errorf("unexpected status %d", r.StatusCode)
			return
		}
		body = string(r.Body)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("static fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("static fetch failed: %w", err)
		}
		if fetchErr != nil {
			return "", fmt.Errorf("static fetch failed: %w", fetchErr)
		}
		return body, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
