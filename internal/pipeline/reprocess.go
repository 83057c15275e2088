package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scribehq/docharvest/internal/document"
	"github.com/scribehq/docharvest/internal/metrics"
)

// Sentinel errors for reprocessing failures. Callers map these to response
// statuses.
var (
	ErrNoArtifact        = errors.New("document has no stored artifact")
	ErrArtifactFetch     = errors.New("artifact could not be retrieved")
	ErrNoExtractableText = errors.New("no text could be extracted from artifact")
)

// ProcessResult summarizes one completed reprocessing run.
type ProcessResult struct {
	DocumentID    string `json:"document_id"`
	Status        string `json:"status"`
	ContentLength int    `json:"content_length"`
}

// Reprocessor re-reads a stored PDF artifact and refreshes the catalog row
// with its extracted text.
type Reprocessor struct {
	catalog   document.Catalog
	extractor document.PageTextExtractor
	client    *http.Client
	logger    *zap.Logger
	tempDir   string
}

// NewReprocessor builds a Reprocessor. A nil client gets a default with a
// 60 second timeout.
func NewReprocessor(catalog document.Catalog, extractor document.PageTextExtractor, client *http.Client, logger *zap.Logger) (*Reprocessor, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reprocessor{
		catalog:   catalog,
		extractor: extractor,
		client:    client,
		logger:    logger,
		tempDir:   os.TempDir(),
	}, nil
}

// Process downloads the document's artifact, extracts its page text and
// overwrites the stored content. Re-running on an already processed document
// repeats the work; the last write wins.
func (r *Reprocessor) Process(ctx context.Context, documentID string) (ProcessResult, error) {
	doc, err := r.catalog.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			metrics.ObserveReprocess("not_found")
			return ProcessResult{}, err
		}
		metrics.ObserveReprocess("error")
		return ProcessResult{}, fmt.Errorf("load document %s: %w", documentID, err)
	}
	if strings.TrimSpace(doc.FilePath) == "" {
		metrics.ObserveReprocess("no_artifact")
		return ProcessResult{}, fmt.Errorf("document %s: %w", documentID, ErrNoArtifact)
	}

	localPath, cleanup, err := r.materialize(ctx, doc.FilePath)
	if err != nil {
		metrics.ObserveReprocess("fetch_error")
		return ProcessResult{}, err
	}
	defer cleanup()

	text, err := r.extractor.PagesToText(localPath)
	if err != nil {
		metrics.ObserveReprocess("extract_error")
		return ProcessResult{}, fmt.Errorf("%w: %v", ErrNoExtractableText, err)
	}
	if strings.TrimSpace(text) == "" {
		metrics.ObserveReprocess("extract_error")
		return ProcessResult{}, fmt.Errorf("document %s: %w", documentID, ErrNoExtractableText)
	}

	updated, err := r.catalog.UpdateContent(ctx, doc.ID, text)
	if err != nil {
		metrics.ObserveReprocess("error")
		return ProcessResult{}, fmt.Errorf("update document %s: %w", documentID, err)
	}
	if !updated {
		metrics.ObserveReprocess("not_found")
		return ProcessResult{}, document.ErrNotFound
	}

	metrics.ObserveReprocess("processed")
	r.logger.Info("document reprocessed",
		zap.String("document_id", doc.ID),
		zap.Int("content_length", len(text)))
	return ProcessResult{
		DocumentID:    doc.ID,
		Status:        string(document.StatusProcessed),
		ContentLength: len(text),
	}, nil
}

// materialize makes the artifact available as a local file. Remote artifacts
// are downloaded to a temp file that cleanup removes; local paths are used
// in place.
func (r *Reprocessor) materialize(ctx context.Context, filePath string) (string, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(filePath, "http://") && !strings.HasPrefix(filePath, "https://") {
		if _, err := os.Stat(filePath); err != nil {
			return "", noop, fmt.Errorf("%w: %v", ErrArtifactFetch, err)
		}
		return filePath, noop, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, filePath, nil)
	if err != nil {
		return "", noop, fmt.Errorf("%w: %v", ErrArtifactFetch, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", noop, fmt.Errorf("%w: %v", ErrArtifactFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", noop, fmt.Errorf("%w: status %d", ErrArtifactFetch, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(r.tempDir, "docharvest_*.pdf")
	if err != nil {
		return "", noop, fmt.Errorf("stage artifact: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("temp artifact cleanup failed",
				zap.String("path", tmp.Name()), zap.Error(err))
		}
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("%w: %v", ErrArtifactFetch, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("stage artifact: %w", err)
	}
	return tmp.Name(), cleanup, nil
}
