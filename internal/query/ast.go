package query

import "strings"

// Dialect is the part of a SQL backend the builder needs: how positional
// parameters are spelled and how a case-insensitive regular expression
// match is written inside a WHERE clause.
type Dialect interface {
	// Placeholder returns the n-th (1-based) parameter marker.
	Placeholder(n int) string
	// Regexp returns a predicate matching column against the pattern bound
	// at placeholder, ignoring case.
	Regexp(column, placeholder string) string
}

// Predicate is one node of a WHERE clause. Values are always bound through
// the renderer; only column names and fixed SQL reach the query text.
type Predicate interface {
	render(r *renderer) string
}

// renderer accumulates bound arguments while predicates are written out.
type renderer struct {
	dialect Dialect
	args    []any
}

func (r *renderer) bind(v any) string {
	r.args = append(r.args, v)
	return r.dialect.Placeholder(len(r.args))
}

// keywordMatch is true when pattern matches at least one of columns.
type keywordMatch struct {
	columns []string
	pattern string
}

func (p keywordMatch) render(r *renderer) string {
	parts := make([]string, len(p.columns))
	for i, col := range p.columns {
		parts[i] = r.dialect.Regexp(col, r.bind(p.pattern))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// inList is true when column equals one of values.
type inList struct {
	column string
	values []string
}

func (p inList) render(r *renderer) string {
	marks := make([]string, len(p.values))
	for i, v := range p.values {
		marks[i] = r.bind(v)
	}
	return p.column + " IN (" + strings.Join(marks, ", ") + ")"
}

// prefixMatch is true when column starts with prefix. LIKE wildcards in
// prefix are escaped.
type prefixMatch struct {
	column string
	prefix string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (p prefixMatch) render(r *renderer) string {
	return p.column + " LIKE " + r.bind(likeEscaper.Replace(p.prefix)+"%") + ` ESCAPE '\'`
}

// equals is an exact column match.
type equals struct {
	column string
	value  string
}

func (p equals) render(r *renderer) string {
	return p.column + " = " + r.bind(p.value)
}

// and joins its children; an empty and renders nothing.
type and []Predicate

func (p and) render(r *renderer) string {
	parts := make([]string, 0, len(p))
	for _, child := range p {
		if s := child.render(r); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " AND ")
}
