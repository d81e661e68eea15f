package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fusesearch/fuse-search/internal/pkg/errors"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

func testClient(srv *httptest.Server) *Client {
	return New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func TestRetrieve(t *testing.T) {
	var gotReq retrieval.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/retrieve" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := retrieval.EmptyResponse(retrieval.MethodOrchestratedHybrid, gotReq.MaxResults)
		resp.Sources = []retrieval.FusedResult{
			{DocumentID: "doc-1", Content: "first", CombinedScore: 0.9},
		}
		resp.TotalResults = 1
		resp.LanesExecuted = []string{"web_search"}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := testClient(srv)
	resp, err := c.Retrieve(context.Background(), retrieval.Request{Query: "go memory model", MaxResults: 5})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if gotReq.Query != "go memory model" || gotReq.MaxResults != 5 {
		t.Errorf("server saw request %+v", gotReq)
	}
	if resp.Method != retrieval.MethodOrchestratedHybrid {
		t.Errorf("Method = %q", resp.Method)
	}
	if resp.TotalResults != 1 || len(resp.Sources) != 1 || resp.Sources[0].DocumentID != "doc-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestRetrieve_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, errors.InvalidRequestError("query is required"))
	}))
	defer srv.Close()

	c := testClient(srv)
	_, err := c.Retrieve(context.Background(), retrieval.Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeInvalidRequest) {
		t.Errorf("error code not preserved: %v", err)
	}
}

func TestRetrieve_UnreachableServer(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})
	_, err := c.Retrieve(context.Background(), retrieval.Request{Query: "q", MaxResults: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsCode(err, errors.CodeUnavailable) {
		t.Errorf("error code = %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"version": "1.2.3",
			"lanes":   map[string]string{"web_search": "available"},
		})
	}))
	defer srv.Close()

	h, err := testClient(srv).CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
	if h.Status != "ok" || h.Version != "1.2.3" {
		t.Errorf("health = %+v", h)
	}
	if h.Lanes["web_search"] != "available" {
		t.Errorf("lanes = %v", h.Lanes)
	}
}

func TestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"version": "1.2.3"})
	}))
	defer srv.Close()

	v, err := testClient(srv).Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != "1.2.3" {
		t.Errorf("Version() = %q", v)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	if c.client.BaseURL != DefaultConfig().BaseURL {
		t.Errorf("BaseURL = %q", c.client.BaseURL)
	}
}
