package models

import "slices"

// templates holds the data an editor pre-fills for each category. A record
// whose data still equals its template was never edited.
var templates = map[Category][]string{
	Snippet: {
		"# Add mandatory snippet command",
	},
	Solution: {
		"## Description",
		"",
		"## References",
		"",
		"## Commands",
		"",
		"## Solutions",
		"",
		"## Whiteboard",
	},
}

// Template returns an unedited record of the given category.
func Template(c Category) *Record {
	return &Record{
		Category: c,
		Data:     slices.Clone(templates[c]),
		Group:    DefaultGroup,
		Tags:     []string{},
		Links:    []string{},
		Versions: []string{},
	}
}
