// Package supabase implements the object store boundary against the Supabase
// Storage REST API.
package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Config captures the required Supabase storage credentials.
type Config struct {
	Endpoint string
	Key      string
	Bucket   string
}

// Store uploads staged files via authenticated PUTs and reports their public
// address. Missing configuration is a constructor error, not a runtime one.
type Store struct {
	cfg    Config
	client *http.Client
}

// New validates the configuration and builds a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Key == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("storage configuration missing (endpoint, key, bucket)")
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Store{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Upload PUTs the file at localPath to destPath inside the configured bucket.
// On 200/201/204 it returns the deterministic public object URL. Any other
// status returns a diagnostic string embedding the status code and response
// body; callers must treat a non-URL return value as a failed upload.
func (s *Store) Upload(ctx context.Context, localPath, destPath string) (string, error) {
	destPath = strings.TrimLeft(destPath, "/")

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read staged file: %w", err)
	}

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.cfg.Endpoint, s.cfg.Bucket, destPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Key)
	req.Header.Set("apiKey", s.cfg.Key)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.cfg.Endpoint, s.cfg.Bucket, destPath), nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Sprintf("upload_failed: %d %s", resp.StatusCode, body), nil
	}
}

// BaseURL reports the public address prefix of uploaded objects.
func (s *Store) BaseURL() string {
	return s.cfg.Endpoint
}
