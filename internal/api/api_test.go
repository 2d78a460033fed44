package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/contentservice"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/testutil"
)

// testEnv sets up a temp store, service, and router for testing.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (*contentservice.Service, http.Handler) {
	t.Helper()
	svc, _ := testService(t)
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func testService(t *testing.T) (*contentservice.Service, *store.Store) {
	t.Helper()
	st := testutil.TestStore(t)
	return contentservice.New(st, contentservice.WithLogger(testutil.Logger())), st
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func snippetBody(data, brief string) map[string]any {
	return map[string]any{
		"category": "snippet",
		"data":     []string{data},
		"brief":    brief,
		"groups":   "docker",
		"tags":     []string{"docker"},
	}
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) errResponse {
	t.Helper()
	var e errResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body %q: %v", w.Body.String(), err)
	}
	if e.Status != "NOK" || len(e.Causes) == 0 {
		t.Errorf("error body = %+v", e)
	}
	return e
}

func create(t *testing.T, h http.Handler, body any) CreateResponse {
	t.Helper()
	w := do(t, h, http.MethodPost, "/contents", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp CreateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCreateAndGetContent(t *testing.T) {
	_, router := testEnv(t, "")

	resp := create(t, router, snippetBody("docker ps -a", "List containers"))
	if resp.Status != "OK" || resp.Stored != 1 || len(resp.Digests) != 1 {
		t.Fatalf("create = %+v", resp)
	}
	digest := resp.Digests[0]

	w := do(t, router, http.MethodGet, "/contents/"+digest[:8], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got Content
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got["digest"] != digest || got["brief"] != "List containers" || got["groups"] != "docker" {
		t.Errorf("get = %v", got)
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")
	body := snippetBody("docker ps", "List containers")
	first := create(t, router, body)

	w := do(t, router, http.MethodPost, "/contents", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate create = %d, want 409", w.Code)
	}
	e := decodeErr(t, w)
	if !strings.Contains(e.Causes[0], first.Digests[0][:16]) {
		t.Errorf("cause %q does not name the stored digest", e.Causes[0])
	}
}

func TestCreatePartial(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, snippetBody("docker ps", "List containers"))

	resp := create(t, router, map[string]any{"data": []any{
		snippetBody("docker ps", "List containers"),
		snippetBody("docker images", "List images"),
	}})
	if resp.Total != 2 || resp.Stored != 1 || len(resp.Causes) != 1 {
		t.Errorf("partial create = %+v", resp)
	}
}

func TestCreateInvalid(t *testing.T) {
	_, router := testEnv(t, "")
	bodies := []any{
		"{not json",
		map[string]any{"category": "recipe", "data": []string{"x"}},
		map[string]any{"category": "snippet", "data": []string{"  "}},
		map[string]any{"category": "snippet", "data": []string{"# Add mandatory snippet command"}},
	}
	for _, b := range bodies {
		w := do(t, router, http.MethodPost, "/contents", b)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", b, w.Code)
			continue
		}
		decodeErr(t, w)
	}
}

func TestListContents(t *testing.T) {
	svc, router := testEnv(t, "")
	ctx := context.Background()
	_, _ = svc.Create(ctx, testutil.Snippet("docker ps", "List containers", "docker", "docker"))
	_, _ = svc.Create(ctx, testutil.Snippet("docker images", "List images", "docker", "docker"))
	_, _ = svc.Create(ctx, testutil.Snippet("kubectl get pods", "List pods", "k8s", "kubernetes"))

	w := do(t, router, http.MethodGet, "/contents?sall=list&limit=2&offset=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ContentListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 || len(resp.Data) != 2 {
		t.Errorf("total = %d, page = %d", resp.Total, len(resp.Data))
	}

	w = do(t, router, http.MethodGet, "/contents?stag=kubernetes", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Data[0]["brief"] != "List pods" {
		t.Errorf("stag = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/contents?sgrp=docker&sort=-brief", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || resp.Data[0]["brief"] != "List images" {
		t.Errorf("sgrp sorted = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/contents?sall=list&scat=solution", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 0 || len(resp.Data) != 0 {
		t.Errorf("solution category = %+v", resp)
	}
}

func TestListContents_UnknownSortFallsBack(t *testing.T) {
	svc, router := testEnv(t, "")
	_, _ = svc.Create(context.Background(), testutil.Snippet("docker ps", "List containers", "docker"))

	w := do(t, router, http.MethodGet, "/contents?sall=docker&sort=nope", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestListContents_BadRequest(t *testing.T) {
	_, router := testEnv(t, "")
	for _, target := range []string{
		"/contents",
		"/contents?sall=x&limit=abc",
		"/contents?sall=x&offset=-1",
		"/contents?sall=x&scat=recipe",
	} {
		w := do(t, router, http.MethodGet, target, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
			continue
		}
		decodeErr(t, w)
	}
}

func TestUpdateContent(t *testing.T) {
	_, router := testEnv(t, "")
	old := create(t, router, snippetBody("docker ps", "List containers")).Digests[0]

	body := snippetBody("docker ps -a", "List all containers")
	delete(body, "category")
	w := do(t, router, http.MethodPut, "/contents/"+old[:10], body)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var got Content
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got["digest"] == old || got["category"] != "snippet" || got["brief"] != "List all containers" {
		t.Errorf("updated = %v", got)
	}

	w = do(t, router, http.MethodGet, "/contents/"+old, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("old digest status = %d, want 404", w.Code)
	}
}

func TestUpdateContent_Errors(t *testing.T) {
	_, router := testEnv(t, "")
	a := create(t, router, snippetBody("docker ps", "List containers")).Digests[0]
	create(t, router, snippetBody("docker images", "List images"))

	w := do(t, router, http.MethodPut, "/contents/"+a, snippetBody("docker images", "List images"))
	if w.Code != http.StatusConflict {
		t.Errorf("update onto existing content = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodPut, "/contents/ffffffffffffffff", snippetBody("uptime", "Uptime"))
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodPut, "/contents/"+a, "[1,2")
	if w.Code != http.StatusBadRequest {
		t.Errorf("update invalid json = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPut, "/contents/"+a[:8], "null")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("update null body = %d, want 400; body %q", w.Code, w.Body.String())
	}
	decodeErr(t, w)
}

func TestDeleteContent(t *testing.T) {
	_, router := testEnv(t, "")
	digest := create(t, router, snippetBody("docker ps", "List containers")).Digests[0]

	w := do(t, router, http.MethodDelete, "/contents/"+digest[:12], nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/contents/"+digest, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	create(t, router, snippetBody("docker ps", "List containers"))
	create(t, router, map[string]any{"category": "solution", "data": []string{"## Fix", "restart"}})

	w := do(t, router, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var st StatsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Total != 2 || st.Categories["snippet"] != 1 || st.Categories["solution"] != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestHealth(t *testing.T) {
	svc, st := testService(t)
	h := NewServerHandler(svc, true, "secret", nil)

	for _, target := range []string{"/health/live", "/health/ready"} {
		w := do(t, h, http.MethodGet, target, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s = %d, want 200 without auth", target, w.Code)
		}
	}
	w := do(t, h, http.MethodGet, "/api/stats", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("/api/stats without token = %d, want 401", w.Code)
	}

	_ = st.Close()
	w = do(t, h, http.MethodGet, "/health/ready", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready after close = %d, want 503", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(t, router, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
	decodeErr(t, w)
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Errorf("disabled auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	svc, _ := testService(t)

	// Minimal SSE handler stub: writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(svc, authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("SSE with valid token = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}
