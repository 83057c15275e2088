// Package render turns extracted text into a durable artifact: a PDF when a
// document writer is available, a plain text file otherwise.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scribehq/docharvest/internal/document"
)

// DocumentWriter renders text segments into a document file at path.
type DocumentWriter interface {
	WriteDocument(path string, meta Metadata, segments []string) error
}

// Metadata is emitted as the document's title block.
type Metadata struct {
	Title       string
	SourceURL   string
	ProjectID   string
	ExtractedAt time.Time
}

// Renderer stages artifacts in a temporary location, then hands them to the
// object store or moves them to a local output directory. An artifact that
// was generated is never lost: when the final move fails, the staging path is
// returned instead.
type Renderer struct {
	writer    DocumentWriter
	store     document.BlobStore
	outputDir string
	logger    *zap.Logger
	now       func() time.Time
}

// New builds a Renderer. writer may be nil, in which case artifacts degrade
// to plain text with the same addressing contract. store may be nil, in
// which case artifacts are moved to outputDir.
func New(writer DocumentWriter, store document.BlobStore, outputDir string, logger *zap.Logger) *Renderer {
	if outputDir == "" {
		outputDir = "output_pdfs"
	}
	return &Renderer{
		writer:    writer,
		store:     store,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Render produces the artifact for text and returns its final address. The
// name hint keeps its extension when the document writer runs; the plain
// text degradation swaps .pdf for .txt.
func (r *Renderer) Render(ctx context.Context, text, name, sourceURL, projectID string) (string, error) {
	staged, finalName, err := r.stage(text, name, sourceURL, projectID)
	if err != nil {
		return "", err
	}

	if r.store != nil {
		addr, upErr := r.store.Upload(ctx, staged, finalName)
		if upErr != nil {
			// The artifact exists; surface where it is rather than losing it.
			r.logger.Warn("artifact upload failed, returning staging path",
				zap.String("name", finalName), zap.Error(upErr))
			return staged, nil
		}
		if rmErr := os.Remove(staged); rmErr != nil && !os.IsNotExist(rmErr) {
			r.logger.Debug("staged artifact cleanup failed", zap.Error(rmErr))
		}
		return addr, nil
	}

	final := filepath.Join(r.outputDir, finalName)
	if err := os.MkdirAll(filepath.Dir(final), 0o750); err != nil {
		return staged, nil
	}
	if err := os.Rename(staged, final); err != nil {
		r.logger.Warn("artifact move failed, returning staging path",
			zap.String("dest", final), zap.Error(err))
		return staged, nil
	}
	return final, nil
}

// stage writes the artifact to a temporary file and reports its path along
// with the final artifact name (extension may change on degradation).
func (r *Renderer) stage(text, name, sourceURL, projectID string) (string, string, error) {
	if r.writer == nil {
		tmp, err := os.CreateTemp("", "docharvest-*.txt")
		if err != nil {
			return "", "", fmt.Errorf("create staging file: %w", err)
		}
		if _, err := tmp.WriteString(text); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return "", "", fmt.Errorf("write staging file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return "", "", fmt.Errorf("close staging file: %w", err)
		}
		return tmp.Name(), strings.TrimSuffix(name, ".pdf") + ".txt", nil
	}

	tmp, err := os.CreateTemp("", "docharvest-*.pdf")
	if err != nil {
		return "", "", fmt.Errorf("create staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", fmt.Errorf("close staging file: %w", err)
	}

	meta := Metadata{
		Title:       "Web Content Extraction",
		SourceURL:   sourceURL,
		ProjectID:   projectID,
		ExtractedAt: r.now(),
	}
	if err := r.writer.WriteDocument(tmp.Name(), meta, Segments(text)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", fmt.Errorf("render document: %w", err)
	}
	return tmp.Name(), name, nil
}

// Segments splits extracted text on blank lines and drops noise fragments
// that normalize to 10 characters or fewer.
func Segments(text string) []string {
	parts := strings.Split(text, "\n\n")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		normalized := strings.Join(strings.Fields(part), " ")
		if len(normalized) <= 10 {
			continue
		}
		segments = append(segments, normalized)
	}
	return segments
}
