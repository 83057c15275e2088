// Package pipeline orchestrates URL acquisition and stored document
// reprocessing.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scribehq/docharvest/internal/document"
	"github.com/scribehq/docharvest/internal/metrics"
)

// Fetcher produces page content for a URL, degrading through fallbacks
// rather than failing.
type Fetcher interface {
	Fetch(ctx context.Context, url string) document.FetchResult
}

// Renderer persists extracted text as a durable artifact and returns its
// address.
type Renderer interface {
	Render(ctx context.Context, text, name, sourceURL, projectID string) (string, error)
}

// Cleaner reduces raw HTML to readable text blocks.
type Cleaner func(rawHTML string) (string, error)

// Acquisition runs the fetch, extract, render and catalog stages for each
// requested URL.
type Acquisition struct {
	fetcher   Fetcher
	clean     Cleaner
	renderer  Renderer
	catalog   document.Catalog
	publisher document.Publisher
	storeBase string
	logger    *zap.Logger
	now       func() time.Time
}

// AcquisitionOptions configures an Acquisition. Catalog and Publisher may be
// nil; acquisition then produces artifacts without catalog records.
type AcquisitionOptions struct {
	Fetcher   Fetcher
	Clean     Cleaner
	Renderer  Renderer
	Catalog   document.Catalog
	Publisher document.Publisher
	StoreBase string
	Logger    *zap.Logger
}

// NewAcquisition builds the acquisition pipeline.
func NewAcquisition(opts AcquisitionOptions) (*Acquisition, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if opts.Clean == nil {
		return nil, fmt.Errorf("cleaner is required")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Acquisition{
		fetcher:   opts.Fetcher,
		clean:     opts.Clean,
		renderer:  opts.Renderer,
		catalog:   opts.Catalog,
		publisher: opts.Publisher,
		storeBase: opts.StoreBase,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// AcquireBatch processes each URL independently and returns one result per
// URL in input order. A failure on one URL never aborts the rest.
func (a *Acquisition) AcquireBatch(ctx context.Context, projectID string, urls []string) []document.ScrapeResult {
	results := make([]document.ScrapeResult, 0, len(urls))
	for _, u := range urls {
		results = append(results, a.acquireOne(ctx, projectID, u))
	}
	return results
}

func (a *Acquisition) acquireOne(ctx context.Context, projectID, url string) document.ScrapeResult {
	result := document.ScrapeResult{URL: url}

	fetched := a.fetcher.Fetch(ctx, url)
	result.Method = fetched.Method
	if fetched.Method == document.MethodErrorArtifact {
		result.Error = "Both fetch methods failed, created error artifact"
	}

	text := fetched.HTML
	if fetched.Method != document.MethodErrorArtifact {
		cleaned, err := a.clean(fetched.HTML)
		if err != nil {
			a.logger.Warn("content extraction failed",
				zap.String("url", url), zap.Error(err))
			cleaned = ""
		}
		if strings.TrimSpace(cleaned) == "" {
			cleaned = fmt.Sprintf("No content could be extracted from %s", url)
		}
		text = cleaned
	}
	result.ContentLength = len(text)

	name := DeriveName(projectID, url)
	addr, err := a.renderer.Render(ctx, text, name, url, projectID)
	if err != nil {
		metrics.ObserveUpload("error")
		result.Error = err.Error()
		return result
	}
	result.ArtifactPath = addr
	metrics.ObserveAcquisition(url, string(fetched.Method))

	if a.catalog != nil && a.storeBase != "" && strings.HasPrefix(addr, a.storeBase) {
		metrics.ObserveUpload("stored")
		id, insertErr := a.catalog.Insert(ctx, document.Document{
			ProjectID: projectID,
			Filename:  name,
			FilePath:  addr,
			Source:    document.SourceScrape,
			Status:    document.StatusPending,
		})
		if insertErr != nil {
			a.logger.Error("catalog insert failed",
				zap.String("url", url), zap.Error(insertErr))
			return result
		}
		result.DocumentID = &id
		a.publishEvent(ctx, id, projectID, url, addr)
	} else {
		metrics.ObserveUpload("local")
	}
	return result
}

func (a *Acquisition) publishEvent(ctx context.Context, docID, projectID, url, addr string) {
	if a.publisher == nil {
		return
	}
	event := document.AcquisitionEvent{
		DocumentID: docID,
		ProjectID:  projectID,
		URL:        url,
		FilePath:   addr,
		OccurredAt: a.now().UTC(),
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Warn("acquisition event publish failed",
			zap.String("document_id", docID), zap.Error(err))
	}
}
