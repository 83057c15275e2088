// Package gcs implements the artifact store on Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

// Store uploads staged artifacts to a GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
}

// New initializes a GCS client and verifies the bucket is reachable.
// Authentication uses Application Default Credentials.
func New(ctx context.Context, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check gcs bucket %q: %w", bucket, err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Upload writes the staged file to the bucket and returns its public URL.
func (s *Store) Upload(ctx context.Context, localPath, destPath string) (string, error) {
	destPath = strings.TrimLeft(destPath, "/")

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read staged file: %w", err)
	}

	w := s.client.Bucket(s.bucket).Object(destPath).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gcs object %s: %w", destPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gcs object %s: %w", destPath, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.BaseURL(), s.bucket, destPath), nil
}

// BaseURL reports the public address prefix of uploaded objects.
func (s *Store) BaseURL() string {
	return "https://storage.googleapis.com"
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
