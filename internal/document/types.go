// Package document defines core types shared across the acquisition pipeline.
package document

import "time"

// Status represents the lifecycle state of a catalog row.
type Status string

// Catalog status values. A row starts as pending when its artifact is stored
// and becomes processed once text has been extracted into document_content.
const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
)

// SourceScrape tags documents produced by the acquisition pipeline.
const SourceScrape = "scrape"

// Document is the durable record of one acquired artifact.
// Content is nil until reprocessing extracts text from the stored artifact.
type Document struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"file_path"`
	Source    string    `json:"source"`
	Status    Status    `json:"status"`
	Content   *string   `json:"document_content"`
	CreatedAt time.Time `json:"created_at"`
}

// FetchMethod identifies which acquisition tier produced a page's HTML.
type FetchMethod string

// Fetch method tags, in fallback order.
const (
	MethodRendered       FetchMethod = "rendered"
	MethodStaticFallback FetchMethod = "static_fallback"
	MethodErrorArtifact  FetchMethod = "error_artifact"
)

// FetchResult is the transient outcome of the fetch chain for one URL.
type FetchResult struct {
	URL    string
	HTML   string
	Method FetchMethod
}

// ScrapeResult is the per-URL entry returned by the acquisition endpoint.
// DocumentID is nil when no catalog row was created for the artifact.
type ScrapeResult struct {
	URL           string      `json:"url"`
	ArtifactPath  string      `json:"pdf_file,omitempty"`
	Method        FetchMethod `json:"method,omitempty"`
	ContentLength int         `json:"content_length,omitempty"`
	DocumentID    *string     `json:"document_id"`
	Error         string      `json:"error,omitempty"`
}
