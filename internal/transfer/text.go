package transfer

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const frontMatterDelim = "---"

// EncodeText renders r as YAML front matter followed by its data lines.
func EncodeText(r *models.Record) ([]byte, error) {
	header := r.ToMap()
	delete(header, models.KeyData)

	var buf bytes.Buffer
	buf.WriteString(frontMatterDelim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(header); err != nil {
		return nil, apperr.Internal(err, "content could not be encoded")
	}
	if err := enc.Close(); err != nil {
		return nil, apperr.Internal(err, "content could not be encoded")
	}
	buf.WriteString(frontMatterDelim + "\n")
	for _, line := range r.Data {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// DecodeText parses one text record. The front matter carries every field
// except data, which is the body. Without a category the record is a
// snippet.
func DecodeText(data []byte) (*models.Record, error) {
	header, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = map[string]any{}
	}
	if c, _ := header[models.KeyCategory].(string); strings.TrimSpace(c) == "" {
		header[models.KeyCategory] = string(models.Snippet)
	}
	body = strings.TrimRight(body, "\r\n")
	if body == "" {
		header[models.KeyData] = []any{}
	} else {
		header[models.KeyData] = strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	}
	return models.FromMap(header)
}

// splitFrontMatter separates a leading YAML block between --- lines from
// the body. Without a leading block the whole input is body. Malformed
// YAML in the block is an error.
func splitFrontMatter(data []byte) (map[string]any, string, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(frontMatterDelim+"\n")) && !bytes.HasPrefix(trimmed, []byte(frontMatterDelim+"\r\n")) {
		return nil, string(data), nil
	}

	rest := trimmed[len(frontMatterDelim):]
	idx := bytes.Index(rest, []byte("\n"+frontMatterDelim))
	if idx < 0 {
		return nil, "", apperr.Validation("front matter is not closed with %s", frontMatterDelim)
	}
	block := rest[:idx]
	after := rest[idx+1+len(frontMatterDelim):]
	// drop the rest of the closing delimiter line
	if nl := bytes.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = nil
	}

	var header map[string]any
	if err := yaml.Unmarshal(block, &header); err != nil {
		return nil, "", apperr.Validation("invalid front matter: %v", err)
	}
	return header, string(after), nil
}
