package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/query"
)

// Backend names accepted by Options.Backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Backend is the per-database strategy chosen when the store is opened:
// the query dialect plus driver, schema, column discovery, and error
// classification.
type Backend interface {
	query.Dialect

	Name() string
	DriverName() string
	// Schema returns idempotent DDL statements.
	Schema() []string
	// Columns lists the column names of the content table.
	Columns(ctx context.Context, db *sql.DB) ([]string, error)
	// IsUniqueViolation reports whether err comes from a UNIQUE constraint.
	IsUniqueViolation(err error) bool
	// IsInvalidPattern reports whether the database rejected a search
	// pattern as a malformed regular expression.
	IsInvalidPattern(err error) bool
}

// BackendFor returns the backend registered under name.
func BackendFor(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendSQLite, "sqlite3":
		return sqliteBackend{}, nil
	case BackendPostgres, "postgresql":
		return postgresBackend{}, nil
	default:
		return nil, apperr.Validation("unknown storage backend %q", name)
	}
}

func scanColumns(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
