package query

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Query is a rendered request: a page query and a count query sharing one
// WHERE clause.
type Query struct {
	FetchSQL  string
	FetchArgs []any
	CountSQL  string
	CountArgs []any
}

// Builder renders requests for one dialect. Sort fields are checked
// against columns, normally the column names the backend reports for the
// content table.
type Builder struct {
	dialect Dialect
	columns map[string]struct{}
}

// NewBuilder creates a Builder. A nil columns slice falls back to Columns.
func NewBuilder(d Dialect, columns []string) *Builder {
	if len(columns) == 0 {
		columns = Columns
	}
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[strings.ToLower(c)] = struct{}{}
	}
	return &Builder{dialect: d, columns: set}
}

// Build validates req, selects its predicates, and renders both queries.
func (b *Builder) Build(req Request) (*Query, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	where, err := Where(req)
	if err != nil {
		return nil, err
	}
	return b.render(where, req.Sort, req.Limit, req.Offset)
}

// Scan renders an unfiltered scan over the given categories (all when
// none) in default order.
func (b *Builder) Scan(categories ...models.Category) (*Query, error) {
	var where and
	if len(categories) > 0 {
		where = append(where, categoryIn(categories))
	}
	return b.render(where, DefaultSort(), 0, 0)
}

// Where selects the predicates of req. The first mode given wins:
//
//  1. AllKeywords over data, brief, description, groups, tags, links, digest
//  2. TagKeywords over tags
//  3. GroupKeywords over groups
//  4. DigestPrefix
//  5. UUID
//  6. DataPrefix
//
// Every keyword must match at least one searched column. Categories
// restrict modes 1-3 and 6. GroupKeywords are regular expressions only in
// mode 3; in modes 1 and 2 they are exact group names, so "dock" alone
// finds group docker but does not narrow a keyword or tag search to it.
func Where(req Request) (Predicate, error) {
	var where and
	all, tags, groups := cleanKeywords(req.AllKeywords), cleanKeywords(req.TagKeywords), cleanKeywords(req.GroupKeywords)

	switch {
	case len(all) > 0:
		where = append(where, keywords(AllKeywordColumns, all)...)
		where = append(where, restrictions(req.Categories, groups)...)
	case len(tags) > 0:
		where = append(where, keywords(TagKeywordColumns, tags)...)
		where = append(where, restrictions(req.Categories, groups)...)
	case len(groups) > 0:
		where = append(where, keywords(GroupKeywordColumns, groups)...)
		where = append(where, restrictions(req.Categories, nil)...)
	case req.DigestPrefix != "":
		where = append(where, prefixMatch{column: "digest", prefix: req.DigestPrefix})
	case req.UUID != "":
		where = append(where, equals{column: "uuid", value: req.UUID})
	case req.DataPrefix != "":
		where = append(where, prefixMatch{column: "data", prefix: req.DataPrefix})
		where = append(where, restrictions(req.Categories, nil)...)
	default:
		return nil, apperr.Validation("please define keyword, digest, or content data as search criteria")
	}
	return where, nil
}

func (b *Builder) render(where Predicate, sort []SortField, limit, offset int) (*Query, error) {
	orderBy, err := b.orderBy(sort)
	if err != nil {
		return nil, err
	}

	r := &renderer{dialect: b.dialect}
	clause := where.render(r)
	if clause != "" {
		clause = " WHERE " + clause
	}
	countArgs := append([]any(nil), r.args...)

	var page string
	if limit > 0 || offset > 0 {
		if limit <= 0 {
			limit = math.MaxInt32
		}
		page = " LIMIT " + r.bind(limit) + " OFFSET " + r.bind(offset)
	}

	return &Query{
		FetchSQL:  "SELECT " + strings.Join(Columns, ", ") + " FROM " + Table + clause + " ORDER BY " + orderBy + page,
		FetchArgs: r.args,
		CountSQL:  "SELECT COUNT(*) FROM " + Table + clause,
		CountArgs: countArgs,
	}, nil
}

func (b *Builder) orderBy(sort []SortField) (string, error) {
	if len(sort) == 0 {
		sort = DefaultSort()
	}
	terms := make([]string, len(sort))
	for i, f := range sort {
		col := strings.ToLower(strings.TrimSpace(f.Field))
		if _, ok := b.columns[col]; !ok {
			return "", &apperr.Error{
				Kind: apperr.ErrValidation,
				Msg:  fmt.Sprintf("cannot sort by %q: not a content column", f.Field),
				Err:  ErrUnknownSortField,
			}
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		terms[i] = col + " " + dir
	}
	return strings.Join(terms, ", "), nil
}

func keywords(columns, words []string) []Predicate {
	out := make([]Predicate, len(words))
	for i, w := range words {
		out[i] = keywordMatch{columns: columns, pattern: w}
	}
	return out
}

func restrictions(categories []models.Category, groups []string) []Predicate {
	var out []Predicate
	if len(categories) > 0 {
		out = append(out, categoryIn(categories))
	}
	if len(groups) > 0 {
		out = append(out, inList{column: "groups", values: groups})
	}
	return out
}

func categoryIn(categories []models.Category) Predicate {
	values := make([]string, len(categories))
	for i, c := range categories {
		values[i] = string(c)
	}
	return inList{column: "category", values: values}
}

// cleanKeywords drops blank keywords and quotes those that are not valid
// regular expressions so they match literally.
func cleanKeywords(words []string) []string {
	var out []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, err := regexp.Compile(w); err != nil {
			w = regexp.QuoteMeta(w)
		}
		out = append(out, w)
	}
	return out
}
