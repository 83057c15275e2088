// Package catalog provides Postgres-backed persistence for document rows.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribehq/docharvest/internal/document"
)

// ErrNotFound indicates no row exists for the requested id.
var ErrNotFound = document.ErrNotFound

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for document rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// Catalog reads and writes document rows in Postgres.
type Catalog struct {
	pool  dbPool
	table string
}

// dbPool is the subset of pgxpool.Pool the catalog uses; pgxmock satisfies
// it in tests.
type dbPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// New creates a Postgres-backed Catalog using the provided config.
func New(ctx context.Context, cfg Config) (*Catalog, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "documents"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Catalog{pool: pool, table: table}, nil
}

// NewWithPool constructs a Catalog from an existing pool (primarily for testing).
func NewWithPool(pool dbPool, table string) (*Catalog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "documents"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Catalog{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (c *Catalog) Close() {
	if c == nil || c.pool == nil {
		return
	}
	c.pool.Close()
}

// EnsureSchema creates the documents relation and its project index when
// absent. Safe to run on every startup.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	create := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	project_id TEXT,
	filename TEXT,
	file_path TEXT,
	source TEXT,
	status TEXT DEFAULT 'pending',
	document_content TEXT,
	created_at TIMESTAMPTZ DEFAULT NOW()
)`, c.table)
	if _, err := c.pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	index := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_project_id_idx ON %s (project_id)`, c.table, c.table)
	if _, err := c.pool.Exec(ctx, index); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Insert stores a new document row and returns its generated id.
func (c *Catalog) Insert(ctx context.Context, doc document.Document) (string, error) {
	id := uuid.New().String()
	query := fmt.Sprintf(`
INSERT INTO %s (id, project_id, filename, file_path, source, status, document_content)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, c.table)

	if _, err := c.pool.Exec(ctx, query,
		id, doc.ProjectID, doc.Filename, doc.FilePath, doc.Source, string(doc.Status), doc.Content,
	); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// GetByID returns the full row for id, or ErrNotFound.
func (c *Catalog) GetByID(ctx context.Context, id string) (document.Document, error) {
	query := fmt.Sprintf(`
SELECT id, project_id, filename, file_path, source, status, document_content, created_at
FROM %s WHERE id = $1`, c.table)

	var (
		doc    document.Document
		status string
	)
	err := c.pool.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.ProjectID, &doc.Filename, &doc.FilePath,
		&doc.Source, &status, &doc.Content, &doc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return document.Document{}, ErrNotFound
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("select document: %w", err)
	}
	doc.Status = document.Status(status)
	return doc, nil
}

// UpdateContent saves extracted text and marks the row processed. It reports
// whether a row was affected; last writer wins.
func (c *Catalog) UpdateContent(ctx context.Context, id string, content string) (bool, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET document_content = $1, status = $2 WHERE id = $3`, c.table)

	tag, err := c.pool.Exec(ctx, query, content, string(document.StatusProcessed), id)
	if err != nil {
		return false, fmt.Errorf("update document content: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
