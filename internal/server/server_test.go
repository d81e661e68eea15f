package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fusesearch/fuse-search/internal/cache"
	"github.com/fusesearch/fuse-search/internal/config"
	"github.com/fusesearch/fuse-search/internal/fusion"
	"github.com/fusesearch/fuse-search/internal/lane"
	"github.com/fusesearch/fuse-search/internal/orchestrator"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

type stubExecutor struct {
	lane  retrieval.Lane
	calls int32
}

func (f *stubExecutor) Lane() retrieval.Lane { return f.lane }

func (f *stubExecutor) Execute(ctx context.Context, query string, topK int) (lane.Outcome, error) {
	atomic.AddInt32(&f.calls, 1)
	return lane.Outcome{Results: []retrieval.RawResult{{
		ID:      "doc-1",
		Content: "orchestration result",
		Score:   0.9,
		Meta: retrieval.ResultMeta{
			URL:    "https://example.com/doc-1",
			Title:  "Doc One",
			Source: string(f.lane),
		},
	}}}, nil
}

func testServer(t *testing.T) (*Server, *stubExecutor) {
	t.Helper()

	web := &stubExecutor{lane: retrieval.LaneWebSearch}
	executors := []lane.Executor{web}

	fuser, err := fusion.New("", fusion.Weights{}, logger.Discard())
	if err != nil {
		t.Fatalf("fusion.New() error = %v", err)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Budget: orchestrator.Budget{
			Total:          2 * time.Second,
			WebSearch:      time.Second,
			VectorSearch:   time.Second,
			KnowledgeGraph: time.Second,
			Fusion:         500 * time.Millisecond,
		},
		Enabled: map[retrieval.Lane]bool{retrieval.LaneWebSearch: true},
	}, executors, fuser, nil, nil, logger.Discard())
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}

	return &Server{
		cfg:     &config.Config{},
		version: "test",
		log:     logger.Discard(),
		orch:    orch,
		cache:   cache.NewMemoryCache(16, 0),
	}, web
}

func postRetrieve(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleRetrieve(t *testing.T) {
	s, _ := testServer(t)
	handler := s.routes()

	rec := postRetrieve(t, handler, `{"query": "raft leader election", "max_results": 5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var resp retrieval.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Method != retrieval.MethodOrchestratedHybrid {
		t.Errorf("Method = %q, want orchestrated_hybrid", resp.Method)
	}
	if resp.TotalResults != 1 || len(resp.Sources) != 1 {
		t.Errorf("TotalResults = %d, Sources = %d, want 1 each", resp.TotalResults, len(resp.Sources))
	}
	if resp.Limit != 5 {
		t.Errorf("Limit = %d, want 5", resp.Limit)
	}
	if len(resp.LanesExecuted) != 1 || resp.LanesExecuted[0] != "web_search" {
		t.Errorf("LanesExecuted = %v, want [web_search]", resp.LanesExecuted)
	}
}

func TestHandleRetrieve_DefaultsMaxResults(t *testing.T) {
	s, _ := testServer(t)

	rec := postRetrieve(t, s.routes(), `{"query": "q"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp retrieval.Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Limit != defaultMaxResults {
		t.Errorf("Limit = %d, want default %d", resp.Limit, defaultMaxResults)
	}
}

func TestHandleRetrieve_BadRequests(t *testing.T) {
	s, _ := testServer(t)
	handler := s.routes()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"query": `},
		{"missing query", `{"max_results": 5}`},
		{"max results too large", `{"query": "q", "max_results": 500}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postRetrieve(t, handler, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleRetrieve_RejectsGet(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/retrieve", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRetrieve_ServesSecondCallFromCache(t *testing.T) {
	s, web := testServer(t)
	handler := s.routes()

	body := `{"query": "cached query", "max_results": 5}`
	if rec := postRetrieve(t, handler, body); rec.Code != http.StatusOK {
		t.Fatalf("first call status = %d, want 200", rec.Code)
	}
	if rec := postRetrieve(t, handler, body); rec.Code != http.StatusOK {
		t.Fatalf("second call status = %d, want 200", rec.Code)
	}

	if got := atomic.LoadInt32(&web.calls); got != 1 {
		t.Errorf("lane executed %d times, want 1 (second call cached)", got)
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health struct {
		Status  string            `json:"status"`
		Version string            `json:"version"`
		Lanes   map[string]string `json:"lanes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Version != "test" {
		t.Errorf("health = %+v, want status ok, version test", health)
	}
	if len(health.Lanes) == 0 {
		t.Error("health response missing lane statuses")
	}
}

func TestHandleVersion(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/version", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"test"`) {
		t.Errorf("body = %s, want version test", rec.Body.String())
	}
}

func TestCORSPreflights(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/retrieve", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestRequestLoggingMasksCredentials(t *testing.T) {
	s, _ := testServer(t)

	var buf bytes.Buffer
	s.log = &logger.Logger{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	handler := s.routes()

	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(`{"query": "q"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer super-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	logged := buf.String()
	if strings.Contains(logged, "super-secret") {
		t.Errorf("log output leaked credential: %s", logged)
	}
	if !strings.Contains(logged, "REDACTED") {
		t.Errorf("log output missing masked header marker: %s", logged)
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	s, _ := testServer(t)
	handler := s.routes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "caller-id" {
		t.Errorf("X-Request-ID = %q, want caller-id echoed", got)
	}
}
