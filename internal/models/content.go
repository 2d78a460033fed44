// Package models defines the content record and collection types.
package models

import (
	"maps"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/starford/ansuz/internal/checksum"
)

// TimeLayout is the storage format of Created and Updated.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultGroup is used when a record has no group.
const DefaultGroup = "default"

// Delimiters of the canonical single-string forms.
const (
	DelimiterData     = "\n"
	DelimiterTags     = ","
	DelimiterLinks    = "\n"
	DelimiterVersions = ","
)

// Record is one snippet or solution.
type Record struct {
	Category    Category `json:"category"`
	Data        []string `json:"data"`
	Brief       string   `json:"brief"`
	Description string   `json:"description"`
	Group       string   `json:"groups"`
	Tags        []string `json:"tags"`
	Links       []string `json:"links"`
	Source      string   `json:"source"`
	Versions    []string `json:"versions"`
	Filename    string   `json:"filename"`
	Created     string   `json:"created"`
	Updated     string   `json:"updated"`
	UUID        string   `json:"uuid"`
	Digest      string   `json:"digest"`

	// Key is the backend row key. Metadata is free-form internal state.
	// Neither is part of the identity or of any external format.
	Key      string            `json:"-"`
	Metadata map[string]string `json:"-"`
}

// Now returns t formatted with TimeLayout in UTC.
func Now(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Normalize puts every field into canonical form in place.
func (r *Record) Normalize() {
	r.Data = normalizeData(r.Data)
	r.Brief = strings.TrimSpace(r.Brief)
	r.Description = strings.TrimSpace(r.Description)
	r.Group = strings.TrimSpace(r.Group)
	if r.Group == "" {
		r.Group = DefaultGroup
	}
	r.Tags = normalizeSet(r.Tags, func(r rune) bool { return r == ',' })
	r.Links = normalizeSet(r.Links, unicode.IsSpace)
	r.Versions = normalizeSet(r.Versions, func(r rune) bool { return r == ',' })
	r.Source = strings.TrimSpace(r.Source)
	r.Filename = strings.TrimSpace(r.Filename)
}

// Identity returns the digest input of r.
func (r *Record) Identity() checksum.Identity {
	return checksum.Identity{
		Data:     r.Data,
		Brief:    r.Brief,
		Group:    r.Group,
		Tags:     r.Tags,
		Links:    r.Links,
		Category: string(r.Category),
		Filename: r.Filename,
	}
}

// DataString returns the data lines joined for storage.
func (r *Record) DataString() string { return strings.Join(r.Data, DelimiterData) }

// TagsString returns the sorted tags joined for storage.
func (r *Record) TagsString() string { return joinSorted(r.Tags, DelimiterTags) }

// LinksString returns the sorted links joined for storage.
func (r *Record) LinksString() string { return joinSorted(r.Links, DelimiterLinks) }

// VersionsString returns the sorted versions joined for storage.
func (r *Record) VersionsString() string { return joinSorted(r.Versions, DelimiterVersions) }

// IsSnippet reports whether r is a snippet.
func (r *Record) IsSnippet() bool { return r.Category == Snippet }

// IsSolution reports whether r is a solution.
func (r *Record) IsSolution() bool { return r.Category == Solution }

// HasData reports whether r carries at least one non-blank data line.
func (r *Record) HasData() bool {
	return slices.ContainsFunc(r.Data, func(s string) bool { return strings.TrimSpace(s) != "" })
}

// IsTemplate reports whether r's data is the unedited template of its category.
func (r *Record) IsTemplate() bool {
	tmpl, ok := templates[r.Category]
	if !ok {
		return false
	}
	return slices.Equal(normalizeData(r.Data), normalizeData(tmpl))
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	c.Data = slices.Clone(r.Data)
	c.Tags = slices.Clone(r.Tags)
	c.Links = slices.Clone(r.Links)
	c.Versions = slices.Clone(r.Versions)
	c.Metadata = maps.Clone(r.Metadata)
	return &c
}

// SplitData splits a stored data column back into lines.
func SplitData(s string) []string { return splitNonEmpty(s, DelimiterData, false) }

// SplitTags splits a stored tags column.
func SplitTags(s string) []string { return splitNonEmpty(s, DelimiterTags, true) }

// SplitLinks splits a stored links column.
func SplitLinks(s string) []string { return splitNonEmpty(s, DelimiterLinks, true) }

// SplitVersions splits a stored versions column.
func SplitVersions(s string) []string { return splitNonEmpty(s, DelimiterVersions, true) }

func splitNonEmpty(s, sep string, dropEmpty bool) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, sep)
	if !dropEmpty {
		return parts
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeData(lines []string) []string {
	var out []string
	for _, l := range lines {
		for _, part := range strings.Split(l, "\n") {
			out = append(out, strings.TrimRightFunc(part, unicode.IsSpace))
		}
	}
	start, end := 0, len(out)
	for start < end && out[start] == "" {
		start++
	}
	for end > start && out[end-1] == "" {
		end--
	}
	return slices.Clip(append([]string{}, out[start:end]...))
}

func normalizeSet(items []string, sep func(rune) bool) []string {
	out := []string{}
	for _, item := range items {
		for _, f := range strings.FieldsFunc(item, sep) {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func joinSorted(items []string, sep string) string {
	s := slices.Clone(items)
	slices.Sort(s)
	return strings.Join(s, sep)
}
