// Package query turns a content search request into parameterized SQL.
//
// A request is reduced to a small predicate tree which is rendered once;
// the page query and the count query reuse the same rendered WHERE clause
// and arguments, so a total can never come from a different filter than
// the page it describes.
package query

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Table is the content table name.
const Table = "contents"

// Columns is the select list of the content table, in scan order.
var Columns = []string{
	"id", "category", "data", "brief", "description", "groups", "tags", "links",
	"source", "versions", "filename", "created", "updated", "uuid", "digest",
}

// Columns searched by each keyword mode.
var (
	AllKeywordColumns   = []string{"data", "brief", "description", "groups", "tags", "links", "digest"}
	TagKeywordColumns   = []string{"tags"}
	GroupKeywordColumns = []string{"groups"}
)

// ErrUnknownSortField is wrapped by the validation error returned for a
// sort field that is not a column of the content table.
var ErrUnknownSortField = errors.New("unknown sort field")

// SortField is one ORDER BY term.
type SortField struct {
	Field string
	Desc  bool
}

// DefaultSort orders by creation time, then brief.
func DefaultSort() []SortField {
	return []SortField{{Field: "created"}, {Field: "brief"}}
}

// ParseSort parses "-created,brief" style sort lists. A leading '-' means
// descending. Blank input returns nil, which selects DefaultSort.
func ParseSort(s string) []SortField {
	var out []SortField
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f := SortField{Field: part}
		if strings.HasPrefix(part, "-") {
			f = SortField{Field: strings.TrimSpace(part[1:]), Desc: true}
		}
		out = append(out, f)
	}
	return out
}

// Request describes a content search. Empty strings and nil slices mean
// "not given". Exactly one selection mode is used; see Builder.Where for
// the precedence.
type Request struct {
	Categories    []models.Category
	AllKeywords   []string
	TagKeywords   []string
	GroupKeywords []string
	DigestPrefix  string
	UUID          string
	DataPrefix    string

	Sort   []SortField
	Limit  int // 0 is unlimited
	Offset int

	// Filter is a regular expression applied by the store to every column
	// of the fetched rows. It shapes output and never affects the total.
	Filter string
}

// Validate checks the paging and category fields.
func (r Request) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Limit, validation.Min(0)),
		validation.Field(&r.Offset, validation.Min(0)),
		validation.Field(&r.Categories, validation.Each(validation.By(func(v any) error {
			if c, _ := v.(models.Category); !c.Valid() {
				return errors.New("unknown category")
			}
			return nil
		}))),
	)
	if err != nil {
		return apperr.Validation("invalid search request: %v", err)
	}
	return nil
}

// SplitKeywords splits s on commas and white space. Blank input yields nil.
func SplitKeywords(s string) []string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return nil
	}
	return words
}
