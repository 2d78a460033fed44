// Package store persists content records in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/query"
)

// ContentStore defines the storage operations used by the service layer.
type ContentStore interface {
	Insert(ctx context.Context, rec *models.Record) (*models.Record, error)
	InsertBatch(ctx context.Context, recs []*models.Record) (BatchResult, error)
	Select(ctx context.Context, req query.Request) (*models.Collection, error)
	SelectByCategory(ctx context.Context, categories ...models.Category) (*models.Collection, error)
	Get(ctx context.Context, digest string) (*models.Record, error)
	Update(ctx context.Context, digest string, rec *models.Record) (*models.Record, error)
	Delete(ctx context.Context, digest string) (*models.Record, error)
	Stats(ctx context.Context) (map[models.Category]int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Verify *Store satisfies ContentStore at compile time.
var _ ContentStore = (*Store)(nil)

// Options configures Open.
type Options struct {
	// Backend is "sqlite" (default) or "postgres".
	Backend string
	// Path is the SQLite database file.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN    string
	Logger *slog.Logger
}

// Store is a ContentStore over database/sql.
type Store struct {
	db      *sql.DB
	backend Backend
	builder *query.Builder
	logger  *slog.Logger
	now     func() time.Time
}

// Open connects to the configured backend and applies the schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	backend, err := BackendFor(opts.Backend)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dsn := opts.DSN
	if backend.Name() == BackendSQLite {
		if opts.Path == "" {
			return nil, fmt.Errorf("store: sqlite path is required")
		}
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create data dir: %w", err)
			}
		}
		dsn = sqliteDSN(opts.Path)
	} else if dsn == "" {
		return nil, fmt.Errorf("store: %s dsn is required", backend.Name())
	}

	db, err := sql.Open(backend.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	for _, stmt := range backend.Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: apply schema: %w", err)
		}
	}
	columns, err := backend.Columns(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: read columns: %w", err)
	}

	logger = logger.With("component", "store", "backend", backend.Name())
	logger.Debug("store opened", "columns", len(columns))
	return &Store{
		db:      db,
		backend: backend,
		builder: query.NewBuilder(backend, columns),
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Backend returns the backend the store was opened with.
func (s *Store) Backend() Backend { return s.backend }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
