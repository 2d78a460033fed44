package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/contentservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/transfer"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *contentservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *contentservice.Service) *Handler {
	return &Handler{svc: svc}
}

// searchRequest reads the search parameters of GET /contents.
func searchRequest(q url.Values) (query.Request, error) {
	cats, err := models.ParseCategories(q.Get("scat"))
	if err != nil {
		return query.Request{}, err
	}
	req := query.Request{
		Categories:    cats,
		AllKeywords:   query.SplitKeywords(q.Get("sall")),
		TagKeywords:   query.SplitKeywords(q.Get("stag")),
		GroupKeywords: query.SplitKeywords(q.Get("sgrp")),
		DigestPrefix:  strings.TrimSpace(q.Get("digest")),
		UUID:          strings.TrimSpace(q.Get("uuid")),
		DataPrefix:    q.Get("data"),
		Sort:          query.ParseSort(q.Get("sort")),
		Filter:        q.Get("filter"),
	}
	if req.Limit, err = intParam(q, "limit"); err != nil {
		return query.Request{}, err
	}
	if req.Offset, err = intParam(q, "offset"); err != nil {
		return query.Request{}, err
	}
	return req, nil
}

func intParam(q url.Values, name string) (int, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, apperr.Validation("%s must be a non-negative integer, got %q", name, s)
	}
	return n, nil
}

// ListContents handles GET /api/contents.
//
//	@Summary		Search snippets and solutions
//	@Tags			contents
//	@Produce		json
//	@Param			sall	query		string	false	"Keywords matched against all fields"
//	@Param			stag	query		string	false	"Keywords matched against tags"
//	@Param			sgrp	query		string	false	"Keywords matched against groups"
//	@Param			scat	query		string	false	"Categories"	Enums(snippet, solution, all)
//	@Param			digest	query		string	false	"Digest prefix"
//	@Param			uuid	query		string	false	"UUID"
//	@Param			data	query		string	false	"Content data prefix"
//	@Param			sort	query		string	false	"Sort fields, '-' for descending"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			filter	query		string	false	"Regular expression applied to the page"
//	@Success		200		{object}	ContentListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contents [get]
func (h *Handler) ListContents(w http.ResponseWriter, r *http.Request) {
	req, err := searchRequest(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	col, err := h.svc.Search(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ContentListResponse{
		Total: col.Total(),
		Data:  col.Maps(),
	})
}

// GetContent handles GET /api/contents/{digest}.
//
//	@Summary		Get one record by digest prefix
//	@Tags			contents
//	@Produce		json
//	@Param			digest	path		string	true	"Digest or unique digest prefix"
//	@Success		200		{object}	Content
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contents/{digest} [get]
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "digest"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.ToMap())
}

// CreateContents handles POST /api/contents. The body is one dictionary,
// a list of them, or a {"data": [...]} document.
//
//	@Summary		Store one or more records
//	@Tags			contents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		Content	true	"Record or list of records"
//	@Success		201		{object}	CreateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contents [post]
func (h *Handler) CreateContents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	recs, err := transfer.Decode(transfer.JSON, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.CreateMany(r.Context(), recs)
	if res.Stored == 0 {
		writeError(w, r, err)
		return
	}
	resp := CreateResponse{
		Status:  statusOK,
		Total:   res.Total,
		Stored:  res.Stored,
		Digests: make([]string, 0, len(res.Records)),
	}
	for _, rec := range res.Records {
		resp.Digests = append(resp.Digests, rec.Digest)
	}
	if res.Cause != nil {
		resp.Causes = apperr.Causes(res.Cause)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// UpdateContent handles PUT /api/contents/{digest}. The body replaces
// every field of the record; a missing category keeps the stored one.
//
//	@Summary		Replace a record
//	@Tags			contents
//	@Accept			json
//	@Produce		json
//	@Param			digest	path		string	true	"Digest or unique digest prefix"
//	@Param			body	body		Content	true	"New field values"
//	@Success		200		{object}	Content
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contents/{digest} [put]
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	digest := chi.URLParam(r, "digest")
	var m map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if m == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if c, _ := m[models.KeyCategory].(string); strings.TrimSpace(c) == "" {
		cur, err := h.svc.Get(r.Context(), digest)
		if err != nil {
			writeError(w, r, err)
			return
		}
		m[models.KeyCategory] = string(cur.Category)
	}
	rec, err := models.FromMap(m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.svc.Update(r.Context(), digest, rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.ToMap())
}

// DeleteContent handles DELETE /api/contents/{digest}.
//
//	@Summary		Delete a record
//	@Tags			contents
//	@Param			digest	path	string	true	"Digest or unique digest prefix"
//	@Success		204		"Record deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contents/{digest} [delete]
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Delete(r.Context(), chi.URLParam(r, "digest")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/stats.
//
//	@Summary		Count records per category
//	@Tags			contents
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Live reports that the process is serving.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the store answers.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
