package models

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

// Dictionary keys used by every external format.
const (
	KeyCategory    = "category"
	KeyData        = "data"
	KeyBrief       = "brief"
	KeyDescription = "description"
	KeyGroups      = "groups"
	KeyTags        = "tags"
	KeyLinks       = "links"
	KeySource      = "source"
	KeyVersions    = "versions"
	KeyFilename    = "filename"
	KeyCreated     = "created"
	KeyUpdated     = "updated"
	KeyUUID        = "uuid"
	KeyDigest      = "digest"
)

// ToMap converts r into the flat dictionary used by import and export.
// Key and Metadata are not included.
func (r *Record) ToMap() map[string]any {
	return map[string]any{
		KeyCategory:    string(r.Category),
		KeyData:        nonNil(r.Data),
		KeyBrief:       r.Brief,
		KeyDescription: r.Description,
		KeyGroups:      r.Group,
		KeyTags:        nonNil(r.Tags),
		KeyLinks:       nonNil(r.Links),
		KeySource:      r.Source,
		KeyVersions:    nonNil(r.Versions),
		KeyFilename:    r.Filename,
		KeyCreated:     r.Created,
		KeyUpdated:     r.Updated,
		KeyUUID:        r.UUID,
		KeyDigest:      r.Digest,
	}
}

// FromMap builds a record from a flat dictionary. List fields accept either
// a list or a single delimited string. Values are taken as given; call
// Normalize for the canonical form.
func FromMap(m map[string]any) (*Record, error) {
	r := &Record{}
	var err error

	cat, err := stringField(m, KeyCategory)
	if err != nil {
		return nil, err
	}
	if cat == "" {
		return nil, apperr.Validation("content category is required")
	}
	if r.Category, err = ParseCategory(cat); err != nil {
		return nil, err
	}

	scalars := []struct {
		key string
		dst *string
	}{
		{KeyBrief, &r.Brief},
		{KeyDescription, &r.Description},
		{KeyGroups, &r.Group},
		{KeySource, &r.Source},
		{KeyFilename, &r.Filename},
		{KeyCreated, &r.Created},
		{KeyUpdated, &r.Updated},
		{KeyUUID, &r.UUID},
		{KeyDigest, &r.Digest},
	}
	for _, s := range scalars {
		if *s.dst, err = stringField(m, s.key); err != nil {
			return nil, err
		}
	}

	lists := []struct {
		key string
		sep string
		dst *[]string
	}{
		{KeyData, DelimiterData, &r.Data},
		{KeyTags, DelimiterTags, &r.Tags},
		{KeyLinks, DelimiterLinks, &r.Links},
		{KeyVersions, DelimiterVersions, &r.Versions},
	}
	for _, l := range lists {
		if *l.dst, err = listField(m, l.key, l.sep); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(t), nil
	default:
		return "", apperr.Validation("content field %q must be a string, got %T", key, v)
	}
}

func listField(m map[string]any, key, sep string) ([]string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return []string{}, nil
	}
	switch t := v.(type) {
	case []string:
		return slices.Clone(t), nil
	case string:
		if t == "" {
			return []string{}, nil
		}
		return strings.Split(t, sep), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				s = fmt.Sprint(item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, apperr.Validation("content field %q must be a list, got %T", key, v)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
