package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/lib/pq"

	"github.com/starford/ansuz/internal/query"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS contents (
	id          BIGSERIAL PRIMARY KEY,
	category    TEXT NOT NULL,
	data        TEXT NOT NULL DEFAULT '',
	brief       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	groups      TEXT NOT NULL DEFAULT 'default',
	tags        TEXT NOT NULL DEFAULT '',
	links       TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	versions    TEXT NOT NULL DEFAULT '',
	filename    TEXT NOT NULL DEFAULT '',
	created     TEXT NOT NULL,
	updated     TEXT NOT NULL,
	uuid        TEXT NOT NULL UNIQUE,
	digest      TEXT NOT NULL UNIQUE
)`

// SQLSTATE codes.
const (
	pqUniqueViolation          = "23505"
	pqInvalidRegularExpression = "2201B"
)

type postgresBackend struct{}

var _ Backend = postgresBackend{}

func (postgresBackend) Name() string       { return BackendPostgres }
func (postgresBackend) DriverName() string { return "postgres" }

func (postgresBackend) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresBackend) Regexp(column, placeholder string) string {
	return column + " ~* " + placeholder
}

func (postgresBackend) Schema() []string {
	return []string{
		postgresSchema,
		`CREATE INDEX IF NOT EXISTS idx_contents_category ON contents(category)`,
		`CREATE INDEX IF NOT EXISTS idx_contents_created ON contents(created)`,
	}
}

func (postgresBackend) Columns(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`,
		query.Table)
	if err != nil {
		return nil, err
	}
	return scanColumns(rows)
}

func (postgresBackend) IsUniqueViolation(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == pqUniqueViolation
}

// IsInvalidPattern catches patterns Go accepts but Postgres does not,
// such as (?P<name>x) or \pL.
func (postgresBackend) IsInvalidPattern(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == pqInvalidRegularExpression
}
