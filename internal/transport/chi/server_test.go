package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/refbase-io/refbase/internal/domain"
	searchuc "github.com/refbase-io/refbase/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	results []domain.SearchResult
	err     error
	lastReq searchuc.Request
}

func (m *mockSearcher) Search(_ context.Context, req searchuc.Request) ([]domain.SearchResult, error) {
	m.lastReq = req
	return m.results, m.err
}

type mockSyncer struct {
	stats      domain.SyncStats
	result     domain.JobResult
	err        error
	reembedded []string
	removed    []string
	lastBatch  int
}

func (m *mockSyncer) Stats(_ context.Context) (domain.SyncStats, error) {
	return m.stats, m.err
}

func (m *mockSyncer) EmbedPending(_ context.Context, batchSize int) (domain.JobResult, error) {
	m.lastBatch = batchSize
	return m.result, m.err
}

func (m *mockSyncer) ReindexAll(_ context.Context) (domain.JobResult, error) {
	return m.result, m.err
}

func (m *mockSyncer) ReembedAsync(id string) {
	m.reembedded = append(m.reembedded, id)
}

func (m *mockSyncer) RemoveDocument(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, id)
	return nil
}

type mockDocs struct {
	doc *domain.Document
	err error
}

func (m *mockDocs) UpsertDocument(_ context.Context, doc *domain.Document) error {
	if m.err != nil {
		return m.err
	}
	m.doc = doc
	return nil
}

func (m *mockDocs) GetDocument(_ context.Context, _ string) (*domain.Document, error) {
	return m.doc, m.err
}

func newTestServer(search *mockSearcher, sync *mockSyncer, docs *mockDocs) http.Handler {
	return NewServer(search, sync, docs, zap.NewNop()).Router()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHandleSearch(t *testing.T) {
	search := &mockSearcher{results: []domain.SearchResult{
		{DocumentID: "a", Score: 0.95, Source: domain.SourceHybrid},
	}}
	h := newTestServer(search, &mockSyncer{}, &mockDocs{})

	body := `{"query":"vacation policy","mode":"hybrid","limit":5,
		"filters":{"category":"policy","date_from":"2026-01-01T00:00:00Z"}}`
	rec := doRequest(t, h, http.MethodPost, "/api/v1/search", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].DocumentID != "a" || resp.Results[0].Source != "hybrid" {
		t.Errorf("unexpected response: %+v", resp)
	}

	if search.lastReq.Filters.Category != "policy" {
		t.Errorf("category filter not passed: %+v", search.lastReq.Filters)
	}
	if search.lastReq.Filters.DateFrom == nil {
		t.Error("date_from filter not parsed")
	}
}

func TestHandleSearch_BadDate(t *testing.T) {
	h := newTestServer(&mockSearcher{}, &mockSyncer{}, &mockDocs{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/search",
		`{"query":"q","filters":{"date_from":"yesterday"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"not_found", domain.ErrNotFound, http.StatusNotFound},
		{"rate_limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"provider", domain.NewProviderError(500, "boom"), http.StatusBadGateway},
		{"lexical", domain.ErrLexicalSearch, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(&mockSearcher{err: tc.err}, &mockSyncer{}, &mockDocs{})
			rec := doRequest(t, h, http.MethodPost, "/api/v1/search", `{"query":"q"}`)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestHandleStats(t *testing.T) {
	sync := &mockSyncer{stats: domain.SyncStats{Total: 10, Embedded: 7, Pending: 3}}
	h := newTestServer(&mockSearcher{}, sync, &mockDocs{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/sync/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats domain.SyncStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats != sync.stats {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHandleEmbedPending(t *testing.T) {
	sync := &mockSyncer{result: domain.JobResult{Processed: 5, Succeeded: 4, Failed: 1}}
	h := newTestServer(&mockSearcher{}, sync, &mockDocs{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/sync/embed-pending", `{"batch_size":25}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if sync.lastBatch != 25 {
		t.Errorf("batch size not passed, got %d", sync.lastBatch)
	}

	var result domain.JobResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result != sync.result {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHandleEmbedPending_NoBody(t *testing.T) {
	sync := &mockSyncer{}
	h := newTestServer(&mockSearcher{}, sync, &mockDocs{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/sync/embed-pending", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 without body, got %d", rec.Code)
	}
	if sync.lastBatch != 0 {
		t.Errorf("expected zero batch size to let the service default, got %d", sync.lastBatch)
	}
}

func TestHandleReindex(t *testing.T) {
	sync := &mockSyncer{result: domain.JobResult{Processed: 100, Succeeded: 100}}
	h := newTestServer(&mockSearcher{}, sync, &mockDocs{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/sync/reindex", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleUpsertDocument(t *testing.T) {
	docs := &mockDocs{}
	h := newTestServer(&mockSearcher{}, &mockSyncer{}, docs)

	body := `{"content":"remote work policy","category":"policy","person_ids":["p1"]}`
	rec := doRequest(t, h, http.MethodPut, "/api/v1/documents/doc-1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if docs.doc == nil || docs.doc.ID != "doc-1" || docs.doc.Category != "policy" {
		t.Errorf("document not stored: %+v", docs.doc)
	}
}

func TestHandleUpsertDocument_MissingContent(t *testing.T) {
	h := newTestServer(&mockSearcher{}, &mockSyncer{}, &mockDocs{})

	rec := doRequest(t, h, http.MethodPut, "/api/v1/documents/doc-1", `{"category":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGetDocument_NotFound(t *testing.T) {
	docs := &mockDocs{err: domain.ErrNotFound}
	h := newTestServer(&mockSearcher{}, &mockSyncer{}, docs)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/documents/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	sync := &mockSyncer{}
	h := newTestServer(&mockSearcher{}, sync, &mockDocs{})

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/documents/doc-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(sync.removed) != 1 || sync.removed[0] != "doc-1" {
		t.Errorf("document not removed: %v", sync.removed)
	}
}

func TestHandleReembed(t *testing.T) {
	sync := &mockSyncer{}
	docs := &mockDocs{doc: &domain.Document{ID: "doc-1"}}
	h := newTestServer(&mockSearcher{}, sync, docs)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/documents/doc-1/reembed", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(sync.reembedded) != 1 || sync.reembedded[0] != "doc-1" {
		t.Errorf("reembed not triggered: %v", sync.reembedded)
	}
	if !strings.Contains(rec.Body.String(), "accepted") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandleReembed_UnknownDocument(t *testing.T) {
	docs := &mockDocs{err: domain.ErrNotFound}
	sync := &mockSyncer{}
	h := newTestServer(&mockSearcher{}, sync, docs)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/documents/missing/reembed", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if len(sync.reembedded) != 0 {
		t.Error("unknown document must not trigger a reembed")
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(&mockSearcher{}, &mockSyncer{}, &mockDocs{})

	rec := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(&mockSearcher{}, &mockSyncer{}, &mockDocs{})

	rec := doRequest(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
