package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scribehq/docharvest/internal/document"
)

type reprocessCatalog struct {
	doc       document.Document
	getErr    error
	updated   bool
	updateErr error

	savedContent  string
	contentWrites []string
}

func (c *reprocessCatalog) EnsureSchema(context.Context) error { return nil }

func (c *reprocessCatalog) Insert(context.Context, document.Document) (string, error) {
	return "", errors.New("not used")
}

func (c *reprocessCatalog) GetByID(_ context.Context, id string) (document.Document, error) {
	if c.getErr != nil {
		return document.Document{}, c.getErr
	}
	return c.doc, nil
}

func (c *reprocessCatalog) UpdateContent(_ context.Context, _ string, content string) (bool, error) {
	if c.updateErr != nil {
		return false, c.updateErr
	}
	c.savedContent = content
	c.contentWrites = append(c.contentWrites, content)
	return c.updated, nil
}

type stubExtractor struct {
	text string
	err  error

	gotPath string
}

func (s *stubExtractor) PagesToText(path string) (string, error) {
	s.gotPath = path
	return s.text, s.err
}

func artifactServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProcessUpdatesContentAndCleansUp(t *testing.T) {
	t.Parallel()

	srv := artifactServer(t, http.StatusOK, "%PDF-1.4 fake")
	cat := &reprocessCatalog{
		doc: document.Document{
			ID:       "doc-1",
			FilePath: srv.URL + "/docs/doc-1.pdf",
			Status:   document.StatusPending,
		},
		updated: true,
	}
	ext := &stubExtractor{text: "Page one text\n\nPage two text"}

	r, err := NewReprocessor(cat, ext, srv.Client(), nil)
	require.NoError(t, err)
	r.tempDir = t.TempDir()

	res, err := r.Process(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, "doc-1", res.DocumentID)
	require.Equal(t, "processed", res.Status)
	require.Equal(t, len(ext.text), res.ContentLength)
	require.Equal(t, ext.text, cat.savedContent)

	entries, err := os.ReadDir(r.tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProcessRepeatedRunsProduceIdenticalResults(t *testing.T) {
	t.Parallel()

	srv := artifactServer(t, http.StatusOK, "%PDF-1.4 fake")
	cat := &reprocessCatalog{
		doc: document.Document{
			ID:       "doc-1",
			FilePath: srv.URL + "/docs/doc-1.pdf",
			Status:   document.StatusPending,
		},
		updated: true,
	}
	ext := &stubExtractor{text: "Stable page text"}

	r, err := NewReprocessor(cat, ext, srv.Client(), nil)
	require.NoError(t, err)
	r.tempDir = t.TempDir()

	first, err := r.Process(context.Background(), "doc-1")
	require.NoError(t, err)

	cat.doc.Status = document.StatusProcessed
	cat.doc.Content = &ext.text

	second, err := r.Process(context.Background(), "doc-1")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, "processed", second.Status)
	require.Equal(t, []string{"Stable page text", "Stable page text"}, cat.contentWrites)

	entries, err := os.ReadDir(r.tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestProcessUnknownDocument(t *testing.T) {
	t.Parallel()

	cat := &reprocessCatalog{getErr: document.ErrNotFound}
	r, err := NewReprocessor(cat, &stubExtractor{}, nil, nil)
	require.NoError(t, err)

	_, err = r.Process(context.Background(), "missing")
	require.ErrorIs(t, err, document.ErrNotFound)
}

func TestProcessRequiresArtifactPath(t *testing.T) {
	t.Parallel()

	cat := &reprocessCatalog{doc: document.Document{ID: "doc-1", FilePath: "  "}}
	r, err := NewReprocessor(cat, &stubExtractor{}, nil, nil)
	require.NoError(t, err)

	_, err = r.Process(context.Background(), "doc-1")
	require.ErrorIs(t, err, ErrNoArtifact)
}

func TestProcessDownloadFailure(t *testing.T) {
	t.Parallel()

	srv := artifactServer(t, http.StatusNotFound, "gone")
	cat := &reprocessCatalog{doc: document.Document{ID: "doc-1", FilePath: srv.URL + "/gone.pdf"}}
	r, err := NewReprocessor(cat, &stubExtractor{}, srv.Client(), nil)
	require.NoError(t, err)

	_, err = r.Process(context.Background(), "doc-1")
	require.ErrorIs(t, err, ErrArtifactFetch)
}

func TestProcessEmptyExtractionIsAnError(t *testing.T) {
	t.Parallel()

	srv := artifactServer(t, http.StatusOK, "%PDF-1.4 fake")
	cat := &reprocessCatalog{doc: document.Document{ID: "doc-1", FilePath: srv.URL + "/a.pdf"}, updated: true}
	ext := &stubExtractor{text: "   \n  "}

	r, err := NewReprocessor(cat, ext, srv.Client(), nil)
	require.NoError(t, err)
	r.tempDir = t.TempDir()

	_, err = r.Process(context.Background(), "doc-1")
	require.ErrorIs(t, err, ErrNoExtractableText)

	entries, readErr := os.ReadDir(r.tempDir)
	require.NoError(t, readErr)
	require.Empty(t, entries)
}

func TestProcessUpdateFailure(t *testing.T) {
	t.Parallel()

	srv := artifactServer(t, http.StatusOK, "%PDF-1.4 fake")
	cat := &reprocessCatalog{
		doc:       document.Document{ID: "doc-1", FilePath: srv.URL + "/a.pdf"},
		updateErr: errors.New("connection reset"),
	}
	r, err := NewReprocessor(cat, &stubExtractor{text: "text"}, srv.Client(), nil)
	require.NoError(t, err)
	r.tempDir = t.TempDir()

	_, err = r.Process(context.Background(), "doc-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoExtractableText)
	require.NotErrorIs(t, err, ErrArtifactFetch)
}

func TestProcessLocalArtifactUsedInPlace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	local := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(local, []byte("%PDF-1.4 fake"), 0o644))

	cat := &reprocessCatalog{doc: document.Document{ID: "doc-1", FilePath: local}, updated: true}
	ext := &stubExtractor{text: "local text"}
	r, err := NewReprocessor(cat, ext, nil, nil)
	require.NoError(t, err)

	_, err = r.Process(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, local, ext.gotPath)

	_, statErr := os.Stat(local)
	require.NoError(t, statErr)
}
