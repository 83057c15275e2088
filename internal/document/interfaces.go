package document

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no document row exists for the requested id.
var ErrNotFound = errors.New("document not found")

// PageRenderer drives a real browser to a URL and returns the rendered DOM.
// Implementations own a browsing session; each call must use a fresh,
// disposable browsing context that is released before the call returns.
type PageRenderer interface {
	RenderPage(ctx context.Context, url string, timeout time.Duration) (string, error)
	Close()
}

// StaticFetcher performs a plain HTTP GET and returns the response body.
// Non-2xx statuses are errors.
type StaticFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// BlobStore uploads a staged local file and returns its durable address.
// A return value that is not URL-shaped indicates a failed upload that the
// caller should treat as diagnostic text, not an address.
type BlobStore interface {
	Upload(ctx context.Context, localPath, destPath string) (string, error)
	// BaseURL reports the public address prefix of stored objects, or ""
	// when objects are not addressable over HTTP (local storage).
	BaseURL() string
}

// Catalog persists Document rows.
type Catalog interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, doc Document) (string, error)
	GetByID(ctx context.Context, id string) (Document, error)
	UpdateContent(ctx context.Context, id string, content string) (bool, error)
}

// PageTextExtractor pulls plain text out of a PDF file, page by page.
// Pages that yield no text are skipped; remaining pages are joined with a
// blank line.
type PageTextExtractor interface {
	PagesToText(path string) (string, error)
}

// Publisher pushes acquisition events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event AcquisitionEvent) error
	Close() error
}

// AcquisitionEvent is emitted after a document row is created.
type AcquisitionEvent struct {
	DocumentID string    `json:"document_id"`
	ProjectID  string    `json:"project_id"`
	URL        string    `json:"url"`
	FilePath   string    `json:"file_path"`
	OccurredAt time.Time `json:"occurred_at"`
}
