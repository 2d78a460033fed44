// Package checksum computes the content digest that identifies a stored
// snippet or solution.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Identity holds the fields that define a content item. Any other field
// (timestamps, uuid, description, source) can change without changing the
// digest.
type Identity struct {
	Data     []string
	Brief    string
	Group    string
	Tags     []string
	Links    []string
	Category string
	Filename string
}

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Compute returns the 64 character lowercase hex digest of id.
func Compute(id Identity) string {
	return Sum([]byte(Canonical(id)))
}

// Canonical renders id in the fixed field order data, brief, group, tags,
// links, category, filename. Scalars are written as "<len>:<value>" and
// lists as "<count>#" followed by their elements, so two identities
// produce the same string only when every field is equal. Tags and links
// are sorted; data keeps its order.
func Canonical(id Identity) string {
	var b strings.Builder
	writeList(&b, id.Data)
	writeField(&b, id.Brief)
	writeField(&b, id.Group)
	writeList(&b, sorted(id.Tags))
	writeList(&b, sorted(id.Links))
	writeField(&b, id.Category)
	writeField(&b, id.Filename)
	return b.String()
}

func writeField(b *strings.Builder, s string) {
	s = norm.NFC.String(s)
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

func writeList(b *strings.Builder, items []string) {
	b.WriteString(strconv.Itoa(len(items)))
	b.WriteByte('#')
	for _, s := range items {
		writeField(b, s)
	}
}

func sorted(items []string) []string {
	out := slices.Clone(items)
	for i, s := range out {
		out[i] = norm.NFC.String(s)
	}
	slices.Sort(out)
	return out
}
