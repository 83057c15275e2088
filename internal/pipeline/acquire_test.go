package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scribehq/docharvest/internal/document"
	"github.com/scribehq/docharvest/internal/publisher/memory"
)

type stubFetcher struct {
	results map[string]document.FetchResult
}

func (s *stubFetcher) Fetch(_ context.Context, url string) document.FetchResult {
	if r, ok := s.results[url]; ok {
		return r
	}
	return document.FetchResult{URL: url, HTML: "<p>default body text</p>", Method: document.MethodRendered}
}

type stubArtifactRenderer struct {
	addr     string
	failFor  string
	rendered []renderCall
}

type renderCall struct {
	text string
	name string
	url  string
}

func (s *stubArtifactRenderer) Render(_ context.Context, text, name, sourceURL, _ string) (string, error) {
	s.rendered = append(s.rendered, renderCall{text: text, name: name, url: sourceURL})
	if s.failFor != "" && sourceURL == s.failFor {
		return "", errors.New("disk full")
	}
	return s.addr + "/" + name, nil
}

type stubCatalog struct {
	inserted  []document.Document
	insertErr error
	nextID    int
}

func (s *stubCatalog) EnsureSchema(context.Context) error { return nil }

func (s *stubCatalog) Insert(_ context.Context, doc document.Document) (string, error) {
	if s.insertErr != nil {
		return "", s.insertErr
	}
	s.nextID++
	s.inserted = append(s.inserted, doc)
	return fmt.Sprintf("doc-%d", s.nextID), nil
}

func (s *stubCatalog) GetByID(context.Context, string) (document.Document, error) {
	return document.Document{}, document.ErrNotFound
}

func (s *stubCatalog) UpdateContent(context.Context, string, string) (bool, error) {
	return false, nil
}

func passthroughClean(raw string) (string, error) { return raw, nil }

func newTestAcquisition(t *testing.T, opts AcquisitionOptions) *Acquisition {
	t.Helper()
	if opts.Fetcher == nil {
		opts.Fetcher = &stubFetcher{}
	}
	if opts.Clean == nil {
		opts.Clean = passthroughClean
	}
	if opts.Renderer == nil {
		opts.Renderer = &stubArtifactRenderer{addr: "https://store.example/public"}
	}
	a, err := NewAcquisition(opts)
	require.NoError(t, err)
	return a
}

func TestAcquireBatchCatalogsStoredArtifacts(t *testing.T) {
	t.Parallel()

	cat := &stubCatalog{}
	pub := memory.New()
	renderer := &stubArtifactRenderer{addr: "https://store.example/public"}
	a := newTestAcquisition(t, AcquisitionOptions{
		Renderer:  renderer,
		Catalog:   cat,
		Publisher: pub,
		StoreBase: "https://store.example",
	})

	results := a.AcquireBatch(context.Background(), "proj-1", []string{"https://example.com/docs/a"})
	require.Len(t, results, 1)

	res := results[0]
	require.Empty(t, res.Error)
	require.Equal(t, document.MethodRendered, res.Method)
	require.NotNil(t, res.DocumentID)
	require.Equal(t, "doc-1", *res.DocumentID)

	require.Len(t, cat.inserted, 1)
	require.Equal(t, "proj-1", cat.inserted[0].ProjectID)
	require.Equal(t, document.StatusPending, cat.inserted[0].Status)
	require.Equal(t, res.ArtifactPath, cat.inserted[0].FilePath)

	events := pub.Events()
	require.Len(t, events, 1)
	require.Equal(t, "doc-1", events[0].DocumentID)
	require.Equal(t, "https://example.com/docs/a", events[0].URL)
}

func TestAcquireBatchIsolatesPerURLFailures(t *testing.T) {
	t.Parallel()

	renderer := &stubArtifactRenderer{
		addr:    "https://store.example/public",
		failFor: "https://b.example.com",
	}
	a := newTestAcquisition(t, AcquisitionOptions{Renderer: renderer})

	urls := []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}
	results := a.AcquireBatch(context.Background(), "p", urls)
	require.Len(t, results, 3)

	require.Equal(t, urls[0], results[0].URL)
	require.Empty(t, results[0].Error)
	require.NotEmpty(t, results[0].ArtifactPath)

	require.Equal(t, urls[1], results[1].URL)
	require.Contains(t, results[1].Error, "disk full")
	require.Empty(t, results[1].ArtifactPath)

	require.Equal(t, urls[2], results[2].URL)
	require.Empty(t, results[2].Error)
}

func TestAcquireSkipsCleaningForErrorArtifacts(t *testing.T) {
	t.Parallel()

	body := "Failed to scrape URL: https://down.example.com - Rendered fetch error: boom - Static fallback error: nope"
	fetcher := &stubFetcher{results: map[string]document.FetchResult{
		"https://down.example.com": {
			URL:    "https://down.example.com",
			HTML:   body,
			Method: document.MethodErrorArtifact,
		},
	}}
	renderer := &stubArtifactRenderer{addr: "https://store.example/public"}
	cleanCalled := false
	a := newTestAcquisition(t, AcquisitionOptions{
		Fetcher:  fetcher,
		Renderer: renderer,
		Clean: func(raw string) (string, error) {
			cleanCalled = true
			return raw, nil
		},
	})

	results := a.AcquireBatch(context.Background(), "p", []string{"https://down.example.com"})
	require.Len(t, results, 1)
	require.False(t, cleanCalled)
	require.Equal(t, document.MethodErrorArtifact, results[0].Method)
	require.Contains(t, results[0].Error, "Both fetch methods failed")
	require.NotEmpty(t, results[0].ArtifactPath)
	require.Len(t, renderer.rendered, 1)
	require.Equal(t, body, renderer.rendered[0].text)
}

func TestAcquireFallsBackWhenNothingExtracted(t *testing.T) {
	t.Parallel()

	renderer := &stubArtifactRenderer{addr: "https://store.example/public"}
	a := newTestAcquisition(t, AcquisitionOptions{
		Renderer: renderer,
		Clean:    func(string) (string, error) { return "   ", nil },
	})

	a.AcquireBatch(context.Background(), "p", []string{"https://empty.example.com"})
	require.Len(t, renderer.rendered, 1)
	require.Equal(t,
		"No content could be extracted from https://empty.example.com",
		renderer.rendered[0].text)
}

func TestAcquireSkipsCatalogForUnstoredArtifacts(t *testing.T) {
	t.Parallel()

	cat := &stubCatalog{}
	renderer := &stubArtifactRenderer{addr: "/var/artifacts"}
	a := newTestAcquisition(t, AcquisitionOptions{
		Renderer:  renderer,
		Catalog:   cat,
		StoreBase: "",
	})

	results := a.AcquireBatch(context.Background(), "p", []string{"https://example.com"})
	require.Len(t, results, 1)
	require.Nil(t, results[0].DocumentID)
	require.Empty(t, cat.inserted)
}

func TestAcquireInsertFailureDoesNotFailResult(t *testing.T) {
	t.Parallel()

	cat := &stubCatalog{insertErr: errors.New("connection refused")}
	renderer := &stubArtifactRenderer{addr: "https://store.example/public"}
	a := newTestAcquisition(t, AcquisitionOptions{
		Renderer:  renderer,
		Catalog:   cat,
		StoreBase: "https://store.example",
	})

	results := a.AcquireBatch(context.Background(), "p", []string{"https://example.com"})
	require.Len(t, results, 1)
	require.Empty(t, results[0].Error)
	require.Nil(t, results[0].DocumentID)
	require.NotEmpty(t, results[0].ArtifactPath)
}
