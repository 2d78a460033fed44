package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/internal/query"
)

// sqliteDriver is go-sqlite3 with a REGEXP function installed on every
// connection.
const sqliteDriver = "sqlite3_regexp"

var patterns, _ = lru.New[string, *regexp.Regexp](256)

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

// regexpMatch backs "value REGEXP pattern". Matching ignores case.
func regexpMatch(pattern, value string) (bool, error) {
	re, ok := patterns.Get(pattern)
	if !ok {
		var err error
		if re, err = regexp.Compile("(?i)" + pattern); err != nil {
			return false, err
		}
		patterns.Add(pattern, re)
	}
	return re.MatchString(value), nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS contents (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
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

type sqliteBackend struct{}

var _ Backend = sqliteBackend{}

func (sqliteBackend) Name() string       { return BackendSQLite }
func (sqliteBackend) DriverName() string { return sqliteDriver }

func (sqliteBackend) Placeholder(int) string { return "?" }

func (sqliteBackend) Regexp(column, placeholder string) string {
	return column + " REGEXP " + placeholder
}

func (sqliteBackend) Schema() []string {
	return []string{
		sqliteSchema,
		`CREATE INDEX IF NOT EXISTS idx_contents_category ON contents(category)`,
		`CREATE INDEX IF NOT EXISTS idx_contents_created ON contents(created)`,
	}
}

func (sqliteBackend) Columns(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info('`+query.Table+`')`)
	if err != nil {
		return nil, err
	}
	return scanColumns(rows)
}

func (sqliteBackend) IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func (sqliteBackend) IsInvalidPattern(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && strings.Contains(err.Error(), "error parsing regexp")
}

// sqliteDSN enables WAL and makes writers queue on the busy timeout.
// LIKE is case sensitive so digest and data prefixes match as on Postgres.
func sqliteDSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_cslike=1"
}
