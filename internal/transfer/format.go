// Package transfer imports and exports content documents.
package transfer

import (
	"bytes"
	"encoding/json"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Format is a document encoding.
type Format string

// Supported formats.
const (
	YAML Format = "yaml"
	JSON Format = "json"
	Text Format = "text"
)

// DocumentVersion is written to the meta block of exported documents.
const DocumentVersion = "1"

// Document is the YAML and JSON export layout.
type Document struct {
	Data []map[string]any `json:"data" yaml:"data"`
	Meta Meta             `json:"meta" yaml:"meta"`
}

// Meta describes an exported document.
type Meta struct {
	Updated string `json:"updated" yaml:"updated"`
	Version string `json:"version" yaml:"version"`
	Count   int    `json:"count" yaml:"count"`
}

// FormatOf picks a format from a file name extension.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	case ".txt", ".md", ".text":
		return Text, nil
	default:
		return "", apperr.Validation("unsupported file format %q, use yaml, json, txt, or md", path.Ext(name))
	}
}

// Encode renders records as a YAML or JSON document. Text output is one
// file per record; see EncodeText.
func Encode(f Format, recs []*models.Record, meta Meta) ([]byte, error) {
	doc := Document{Data: make([]map[string]any, len(recs)), Meta: meta}
	for i, r := range recs {
		doc.Data[i] = r.ToMap()
	}
	doc.Meta.Count = len(recs)
	if doc.Meta.Version == "" {
		doc.Meta.Version = DocumentVersion
	}

	switch f {
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, apperr.Internal(err, "content could not be encoded")
		}
		if err := enc.Close(); err != nil {
			return nil, apperr.Internal(err, "content could not be encoded")
		}
		return buf.Bytes(), nil
	case JSON:
		out, err := json.MarshalIndent(doc, "", "    ")
		if err != nil {
			return nil, apperr.Internal(err, "content could not be encoded")
		}
		return append(out, '\n'), nil
	case Text:
		if len(recs) != 1 {
			return nil, apperr.Validation("text format holds exactly one content, got %d", len(recs))
		}
		return EncodeText(recs[0])
	default:
		return nil, apperr.Validation("unsupported format %q", f)
	}
}

// Decode parses a document into records. YAML and JSON accept a document
// with a data list, a bare list of content dictionaries, or a single
// content dictionary.
func Decode(f Format, data []byte) ([]*models.Record, error) {
	var raw any
	switch f {
	case YAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, apperr.Validation("invalid yaml document: %v", err)
		}
	case JSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, apperr.Validation("invalid json document: %v", err)
		}
	case Text:
		r, err := DecodeText(data)
		if err != nil {
			return nil, err
		}
		return []*models.Record{r}, nil
	default:
		return nil, apperr.Validation("unsupported format %q", f)
	}
	return Records(raw)
}

// Records converts a decoded document into records.
func Records(raw any) ([]*models.Record, error) {
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil, apperr.Validation("document is empty")
	case []any:
		items = v
	case map[string]any:
		if _, single := v[models.KeyCategory]; single {
			items = []any{v}
		} else if list, ok := v[models.KeyData].([]any); ok {
			items = list
		} else {
			return nil, apperr.Validation("document has no content data list")
		}
	default:
		return nil, apperr.Validation("document must be a dictionary or a list, got %T", raw)
	}

	out := make([]*models.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, apperr.Validation("content %d is not a dictionary", i)
		}
		r, err := models.FromMap(m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
