package models

import (
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

// Category is the top-level kind of a content item.
type Category string

// Known categories.
const (
	Snippet  Category = "snippet"
	Solution Category = "solution"
)

// Categories returns every known category in display order.
func Categories() []Category {
	return []Category{Snippet, Solution}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := templates[c]
	return ok
}

func (c Category) String() string { return string(c) }

// ParseCategory validates s as a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", apperr.Validation("unknown content category %q", s)
	}
	return c, nil
}

// ParseCategories parses a comma separated category list. An empty string
// or "all" selects every category.
func ParseCategories(s string) ([]Category, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return Categories(), nil
	}
	var out []Category
	seen := make(map[Category]struct{})
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCategory(part)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
