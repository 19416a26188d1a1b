package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cymbal-labs/searchdemo/internal/gateway"
	"github.com/cymbal-labs/searchdemo/internal/observability"
	"github.com/cymbal-labs/searchdemo/internal/server"
	"github.com/cymbal-labs/searchdemo/internal/server/handlers"
	"github.com/cymbal-labs/searchdemo/internal/state"
	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// cleanupMetrics tears down global telemetry state so each test starts clean.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// isPermissionError normalizes OS-specific permission errors so we can skip
// when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func listenOrSkip(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping: loopback listen refused: %v", err)
		}
		require.NoError(t, err)
	}
	return listener
}

func initMetricsOrSkip(t *testing.T) {
	t.Helper()
	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}
	cleanupMetrics(t)
}

// fakeBackend answers /search with one document whose summary echoes the query.
func fakeBackend(t *testing.T, delay time.Duration, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := &httptest.Server{
		Listener: listenOrSkip(t),
		Config: &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/ping":
				_, _ = w.Write([]byte(`{"status":"pong"}`))
			case "/search":
				calls.Add(1)
				var body struct {
					Query string `json:"query"`
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				time.Sleep(delay)
				w.Header().Set("Content-Type", "application/json")
				_, _ = fmt.Fprintf(w, `{"summary":{"summaryText":%q},"results":[{"document":{"structData":{"title":"docs/%s.pdf"}}}]}`,
					"about "+body.Query, strings.ReplaceAll(body.Query, " ", "-"))
			default:
				http.NotFound(w, r)
			}
		})},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func newDemoServer(t *testing.T, backendURL string, policy state.ResponsePolicy) (*httptest.Server, *http.Client) {
	t.Helper()
	client := &gateway.Client{BaseURL: backendURL}
	sessions := ui.NewSessions(ui.SessionOptions{Searcher: client, Policy: policy})
	srv := server.New("127.0.0.1", 0, server.Options{Sessions: sessions, Title: "Integration"})

	ts := &httptest.Server{
		Listener: listenOrSkip(t),
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)

	httpClient := ts.Client()
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return ts, httpClient
}

func openTab(t *testing.T, client *http.Client, base string) string {
	t.Helper()
	resp, err := client.Get(base + "/")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	tab := loc.Query().Get("tab")
	require.NotEmpty(t, tab)
	return tab
}

func postJSON(client *http.Client, endpoint string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return client.Post(endpoint, "application/json", bytes.NewReader(payload))
}

func getState(t *testing.T, client *http.Client, base, tab string) handlers.StateResponse {
	t.Helper()
	resp, err := client.Get(base + "/api/state?tab=" + url.QueryEscape(tab))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st handlers.StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func TestSearchFlow_TabsAreIsolated(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", observability.ServerLogOptions{Level: "error"})
	initMetricsOrSkip(t)
	handlers.InitHealthManager("test")

	var calls atomic.Int32
	backend := fakeBackend(t, 10*time.Millisecond, &calls)
	ts, client := newDemoServer(t, backend.URL, state.LastWriteWins)

	const numTabs = 8

	tabs := make([]string, numTabs)
	for i := range tabs {
		tabs[i] = openTab(t, client, ts.URL)
	}

	var wg sync.WaitGroup
	errs := make(chan error, numTabs)
	for i, tab := range tabs {
		wg.Add(1)
		go func(i int, tab string) {
			defer wg.Done()
			query := fmt.Sprintf("query %d", i)
			resp, err := postJSON(client, ts.URL+"/api/query", map[string]string{"tab": tab, "query": query})
			if err != nil {
				errs <- err
				return
			}
			_ = resp.Body.Close()

			resp, err = postJSON(client, ts.URL+"/api/search", map[string]string{"tab": tab})
			if err != nil {
				errs <- err
				return
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusAccepted {
				errs <- fmt.Errorf("tab %d: search status %d", i, resp.StatusCode)
			}
		}(i, tab)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for i, tab := range tabs {
		want := fmt.Sprintf("about query %d", i)
		require.Eventually(t, func() bool {
			st := getState(t, client, ts.URL, tab)
			return !st.Busy && st.Results.Summary == want
		}, 5*time.Second, 10*time.Millisecond, "tab %d never showed its own result", i)

		st := getState(t, client, ts.URL, tab)
		require.Len(t, st.Results.Documents, 1)
		assert.Equal(t, fmt.Sprintf("query-%d.pdf", i), st.Results.Documents[0].Title)
	}
	assert.EqualValues(t, numTabs, calls.Load())

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsContent := string(body)
	assert.Contains(t, metricsContent, "test_http_requests_total")
	assert.Contains(t, metricsContent, "test_app_searches_total")
}

func TestSearchFlow_BlankQueryRejected(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", observability.ServerLogOptions{Level: "error"})

	var calls atomic.Int32
	backend := fakeBackend(t, 0, &calls)
	ts, client := newDemoServer(t, backend.URL, state.LatestSubmit)
	tab := openTab(t, client, ts.URL)

	resp, err := postJSON(client, ts.URL+"/api/search", map[string]string{"tab": tab})
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Please enter a search query")
	assert.Zero(t, calls.Load())

	st := getState(t, client, ts.URL, tab)
	assert.False(t, st.Busy)
	assert.Empty(t, st.Results.Documents)
}

func TestSearchFlow_PageRendersSession(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", observability.ServerLogOptions{Level: "error"})

	var calls atomic.Int32
	backend := fakeBackend(t, 0, &calls)
	ts, client := newDemoServer(t, backend.URL, state.LastWriteWins)
	tab := openTab(t, client, ts.URL)

	resp, err := client.Get(ts.URL + "/?tab=" + url.QueryEscape(tab))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "Integration")
	assert.Contains(t, string(body), tab)
}
