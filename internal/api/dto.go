package api

import (
	"github.com/starford/ansuz/internal/contentservice"
)

// Content is one record in its flat dictionary form.
type Content = map[string]any

// ContentListResponse wraps a page of search results. Total counts every
// match before limit and offset.
type ContentListResponse struct {
	Total int       `json:"total" example:"42" validate:"required"`
	Data  []Content `json:"data" validate:"required"`
}

// CreateResponse reports a create request. Causes lists the records that
// were rejected when at least one other record was stored.
type CreateResponse struct {
	Status  string   `json:"status" example:"OK" validate:"required"`
	Total   int      `json:"total" example:"2" validate:"required"`
	Stored  int      `json:"stored" example:"1" validate:"required"`
	Digests []string `json:"digests" validate:"required"`
	Causes  []string `json:"causes,omitempty"`
}

// StatsResponse counts stored records per category.
type StatsResponse = contentservice.Stats
