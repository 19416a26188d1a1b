package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cymbal-labs/searchdemo/internal/errors"
	"github.com/cymbal-labs/searchdemo/internal/gateway"
	"github.com/cymbal-labs/searchdemo/internal/server/handlers"
	servermw "github.com/cymbal-labs/searchdemo/internal/server/middleware"
	"github.com/cymbal-labs/searchdemo/internal/state"
	"github.com/cymbal-labs/searchdemo/internal/ui"
)

const testTab = "6f1d2a4e-0c9b-4f53-9f3e-2b7f8d1c5a10"

const backendResponse = `{
	"summary": {"summaryText": "Refunds within 30 days.", "summaryWithMetadata": {"references": []}},
	"results": [{"document": {
		"structData": {"title": "docs/policy.pdf"},
		"derivedStructData": {
			"snippets": [{"snippet": "<b>30 days</b>"}],
			"extractive_answers": [{"pageNumber": 3, "content": "answer"}],
			"extractive_segments": [{"pageNumber": 5, "content": "segment", "relevanceScore": 0.91}]
		}
	}}]
}`

func newTestServer(t *testing.T, backend http.Handler) *Server {
	t.Helper()

	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	sessions := ui.NewSessions(ui.SessionOptions{
		Searcher: &gateway.Client{BaseURL: backendSrv.URL, Client: backendSrv.Client()},
		Policy:   state.LastWriteWins,
	})
	return New("127.0.0.1", 0, Options{Sessions: sessions, AllowedOrigins: []string{"http://localhost:3000"}})
}

func okBackend() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(backendResponse))
	})
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestPageRedirectsToNewTab(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/?tab="))
}

func TestPageRendersTab(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{Title: "Docs Search"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?tab="+testTab, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `data-tab="`+testTab+`"`)
	assert.Contains(t, rec.Body.String(), "Docs Search")
	assert.Contains(t, rec.Body.String(), ui.SummaryPlaceholder)
}

func TestStaticAssetsServed(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/search")
}

func TestSearchWithEmptyQueryIsRejected(t *testing.T) {
	calls := 0
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))

	rec := postJSON(t, srv.Handler(), "/api/search", map[string]string{"tab": testTab})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Equal(t, "Please enter a search query", body.Error.Message)
	assert.Equal(t, "empty_query", body.Error.Details["reason"])
	assert.Zero(t, calls)
}

func TestSearchWithInvalidFieldIsRejected(t *testing.T) {
	srv := newTestServer(t, okBackend())
	h := srv.Handler()

	require.Equal(t, http.StatusOK, postJSON(t, h, "/api/query", map[string]string{"tab": testTab, "query": "q"}).Code)
	rec := postJSON(t, h, "/api/params", map[string]string{"tab": testTab, "field": "maxSnippetCount", "value": "abc"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"field":"maxSnippetCount","value":-1,"valid":false}`, rec.Body.String())

	rec = postJSON(t, h, "/api/search", map[string]string{"tab": testTab})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "maxSnippetCount", body.Error.Details["field"])
}

func TestUnknownParamField(t *testing.T) {
	srv := newTestServer(t, okBackend())

	rec := postJSON(t, srv.Handler(), "/api/params", map[string]string{"tab": testTab, "field": "bogus", "value": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingTab(t *testing.T) {
	srv := newTestServer(t, okBackend())

	rec := postJSON(t, srv.Handler(), "/api/query", map[string]string{"query": "q"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, srv.Handler(), "/api/query", map[string]string{"tab": "not-a-uuid", "query": "q"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryCommitKey(t *testing.T) {
	srv := newTestServer(t, okBackend())
	h := srv.Handler()

	postJSON(t, h, "/api/query", map[string]string{"tab": testTab, "query": "refund"})
	rec := postJSON(t, h, "/api/query", map[string]string{"tab": testTab, "query": "refund", "key": "Enter"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"refund","preventDefault":true}`, rec.Body.String())
}

func waitForState(t *testing.T, h http.Handler, done func(handlers.StateResponse) bool) handlers.StateResponse {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state?tab="+testTab, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var st handlers.StateResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
		if done(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("state never settled: %+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRefundPolicyEndToEnd(t *testing.T) {
	var mu sync.Mutex
	var wire map[string]any
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&wire)
		_, _ = w.Write([]byte(backendResponse))
	}))
	h := srv.Handler()

	postJSON(t, h, "/api/query", map[string]string{"tab": testTab, "query": "refund policy"})
	rec := postJSON(t, h, "/api/search", map[string]string{"tab": testTab})
	require.Equal(t, http.StatusAccepted, rec.Code)

	st := waitForState(t, h, func(s handlers.StateResponse) bool { return !s.Busy && s.Results.HasSummary })
	assert.Equal(t, "refund policy", st.Query)
	require.Len(t, st.Results.Documents, 1)
	assert.Equal(t, "policy.pdf", st.Results.Documents[0].Title)
	assert.Equal(t, "0.91", st.Results.Documents[0].Segments[0].Score)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "refund policy", wire["query"])
	assert.Equal(t, float64(1), wire["pageSize"])
	assert.Equal(t, float64(1), wire["max_extractive_segment_count"])

	frag := httptest.NewRecorder()
	h.ServeHTTP(frag, httptest.NewRequest(http.MethodGet, "/api/results?tab="+testTab, nil))
	require.Equal(t, http.StatusOK, frag.Code)
	html := frag.Body.String()
	assert.Contains(t, html, "from: policy.pdf")
	assert.Contains(t, html, "<b>30 days</b>")
	assert.Contains(t, html, "page 3")
	assert.Contains(t, html, "relevance score: 0.91")
}

func TestBackendFailureClearsResults(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	h := srv.Handler()

	postJSON(t, h, "/api/query", map[string]string{"tab": testTab, "query": "refund policy"})
	require.Equal(t, http.StatusAccepted, postJSON(t, h, "/api/search", map[string]string{"tab": testTab}).Code)

	st := waitForState(t, h, func(s handlers.StateResponse) bool { return !s.Busy })
	assert.False(t, st.Results.HasSummary)
	assert.Equal(t, ui.SummaryPlaceholder, st.Results.Summary)
	assert.Empty(t, st.Results.Documents)
}

func TestCORSPreflightOnAPI(t *testing.T) {
	srv := newTestServer(t, okBackend())

	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLiveChannelPushesResults(t *testing.T) {
	srv := newTestServer(t, okBackend())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?tab="+testTab, nil)
	require.NoError(t, err)
	defer conn.CloseNow() // nolint:errcheck

	var msg handlers.LiveMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	require.Equal(t, "results", msg.Type)
	assert.Contains(t, msg.HTML, ui.SummaryPlaceholder)

	postJSON(t, ts.Config.Handler, "/api/query", map[string]string{"tab": testTab, "query": "refund policy"})
	require.Equal(t, http.StatusAccepted, postJSON(t, ts.Config.Handler, "/api/search", map[string]string{"tab": testTab}).Code)

	for {
		var next handlers.LiveMessage
		require.NoError(t, wsjson.Read(ctx, conn, &next))
		if next.Type == "results" && strings.Contains(next.HTML, "policy.pdf") {
			assert.Contains(t, next.HTML, "relevance score: 0.91")
			return
		}
	}
}

func TestLiveChannelIgnoresQueryEdits(t *testing.T) {
	srv := newTestServer(t, okBackend())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?tab="+testTab, nil)
	require.NoError(t, err)
	defer conn.CloseNow() // nolint:errcheck

	// initial state: one results and one busy message, in either order
	for range 2 {
		var msg handlers.LiveMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
	}

	for _, q := range []string{"r", "re", "refund", "refund policy"} {
		postJSON(t, ts.Config.Handler, "/api/query", map[string]string{"tab": testTab, "query": q})
	}
	require.Equal(t, http.StatusAccepted, postJSON(t, ts.Config.Handler, "/api/search", map[string]string{"tab": testTab}).Code)

	for {
		var next handlers.LiveMessage
		require.NoError(t, wsjson.Read(ctx, conn, &next))
		if next.Type != "results" {
			continue
		}
		assert.Contains(t, next.HTML, "policy.pdf", "the first results push must be the search outcome")
		return
	}
}

func TestOrderedEditsThenSearchCarryRequestID(t *testing.T) {
	var mu sync.Mutex
	var wire map[string]any
	var forwarded string
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		forwarded = r.Header.Get("X-Request-ID")
		_ = json.NewDecoder(r.Body).Decode(&wire)
		_, _ = w.Write([]byte(backendResponse))
	}))
	t.Cleanup(backendSrv.Close)

	sessions := ui.NewSessions(ui.SessionOptions{
		Searcher: &gateway.Client{
			BaseURL:   backendSrv.URL,
			Client:    backendSrv.Client(),
			RequestID: servermw.GetRequestID,
		},
		Policy: state.LastWriteWins,
	})
	h := New("127.0.0.1", 0, Options{Sessions: sessions}).Handler()

	// One write per keystroke, in order, the way the page queues them.
	for _, q := range []string{"r", "re", "refund", "refund policy"} {
		require.Equal(t, http.StatusOK, postJSON(t, h, "/api/query", map[string]string{"tab": testTab, "query": q}).Code)
	}
	for _, v := range []string{"", "1", "12"} {
		require.Equal(t, http.StatusOK, postJSON(t, h, "/api/params", map[string]string{"tab": testTab, "field": "maxSnippetCount", "value": v}).Code)
	}

	payload, err := json.Marshal(map[string]string{"tab": testTab})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "web-search-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "web-search-1", rec.Header().Get("X-Request-ID"))

	waitForState(t, h, func(s handlers.StateResponse) bool { return !s.Busy && s.Results.HasSummary })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "web-search-1", forwarded)
	assert.Equal(t, "refund policy", wire["query"])
	assert.Equal(t, float64(12), wire["max_snippet_count"])
}

func TestPageScriptSerializesWrites(t *testing.T) {
	srv := New("127.0.0.1", 0, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	script := rec.Body.String()

	assert.Contains(t, script, "queue.then(")
	assert.Contains(t, script, `enqueue("/api/query"`)
	assert.Contains(t, script, `enqueue("/api/params"`)
	assert.Contains(t, script, `enqueue("/api/search"`)
	assert.Contains(t, script, `"X-Request-ID"`)
	assert.NotContains(t, script, `addEventListener("change"`)
	assert.Equal(t, 1, strings.Count(script, "return fetch(path"), "every POST goes through post()")
}
