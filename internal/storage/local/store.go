// Package local implements a local filesystem artifact store, the degraded
// mode used when no object storage is configured.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local filesystem store.
type Config struct {
	// BaseDir is the root directory where artifacts will be stored.
	BaseDir string `mapstructure:"base_dir"`
}

// Store moves staged artifacts into a local directory.
type Store struct {
	baseDir string
}

// New verifies the base directory is usable and creates it if needed.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return &Store{baseDir: cfg.BaseDir}, nil
}

// Upload moves the staged file into the base directory and returns its
// absolute path. Rename is attempted first; a copy covers cross-device moves.
func (s *Store) Upload(_ context.Context, localPath, destPath string) (string, error) {
	destPath = strings.TrimLeft(destPath, "/")
	if destPath == "" {
		return "", fmt.Errorf("destination path is required")
	}

	fullPath := filepath.Join(s.baseDir, destPath)
	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}

	if err := os.Rename(localPath, fullPath); err != nil {
		if copyErr := copyFile(localPath, fullPath); copyErr != nil {
			return "", fmt.Errorf("move staged file: %w", copyErr)
		}
	}

	abs, err := filepath.Abs(fullPath)
	if err != nil {
		return fullPath, nil
	}
	return abs, nil
}

// BaseURL is empty: local artifacts are not addressable over HTTP, so they
// are never cataloged.
func (s *Store) BaseURL() string {
	return ""
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // read-only handle

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	return out.Close()
}
