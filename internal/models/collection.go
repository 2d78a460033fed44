package models

// Collection is the ordered result of a query. Total counts every match
// before limit and offset were applied.
type Collection struct {
	records []*Record
	total   int
}

// NewCollection takes ownership of records.
func NewCollection(records []*Record, total int) *Collection {
	if total < len(records) {
		total = len(records)
	}
	return &Collection{records: records, total: total}
}

// Len returns the number of records in the page.
func (c *Collection) Len() int { return len(c.records) }

// Total returns the number of matches before pagination.
func (c *Collection) Total() int { return c.total }

// At returns a copy of the i-th record.
func (c *Collection) At(i int) *Record { return c.records[i].Clone() }

// Records returns copies of all records in order.
func (c *Collection) Records() []*Record {
	out := make([]*Record, len(c.records))
	for i, r := range c.records {
		out[i] = r.Clone()
	}
	return out
}

// Digests returns the digests in order.
func (c *Collection) Digests() []string {
	out := make([]string, len(c.records))
	for i, r := range c.records {
		out[i] = r.Digest
	}
	return out
}

// Maps converts every record with Record.ToMap.
func (c *Collection) Maps() []map[string]any {
	out := make([]map[string]any, len(c.records))
	for i, r := range c.records {
		out[i] = r.ToMap()
	}
	return out
}
