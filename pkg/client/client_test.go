package client

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fake "github.com/Sternrassler/infinispan-client/internal/testutil"
	"github.com/Sternrassler/infinispan-client/pkg/request"
	"github.com/Sternrassler/infinispan-client/pkg/request/caches"
	"github.com/Sternrassler/infinispan-client/pkg/request/counters"
	"github.com/Sternrassler/infinispan-client/pkg/request/entries"
)

const (
	testUser     = "username"
	testPassword = "password"
)

// setupFakeServer starts a fake Infinispan server and a client pointed at it.
func setupFakeServer(t *testing.T) (*fake.FakeInfinispan, *Client) {
	t.Helper()

	server := fake.NewFakeInfinispan(testUser, testPassword)
	t.Cleanup(server.Close)

	client, err := New(DefaultConfig(server.URL(), testUser, testPassword))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return server, client
}

// run executes a request and returns status and body.
func run(t *testing.T, client *Client, b request.Builder) (int, string) {
	t.Helper()

	resp, err := client.Run(context.Background(), b)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("http://localhost:11222", "u", "p"),
		},
		{
			name:   "empty credentials are allowed",
			config: Config{BaseURL: "http://localhost:11222"},
		},
		{
			name:        "empty base url",
			config:      Config{Username: "u", Password: "p"},
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name:        "negative timeout",
			config:      Config{BaseURL: "http://localhost:11222", Timeout: -time.Second},
			expectError: true,
			errorMsg:    "timeout must be >= 0 (got -1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("http://localhost:11222", "u", "p")

	assert.Equal(t, "http://localhost:11222", cfg.BaseURL)
	assert.Equal(t, "u", cfg.Username)
	assert.Equal(t, "p", cfg.Password)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Nil(t, cfg.HTTPClient)
}

func TestBasicAuth(t *testing.T) {
	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("u:p"))
	assert.Equal(t, expected, BasicAuth("u", "p"))
	assert.Equal(t, "Basic dTpw", BasicAuth("u", "p"))

	client, err := New(DefaultConfig("http://localhost:11222", "u", "p"))
	require.NoError(t, err)
	assert.Equal(t, expected, client.AuthorizationHeader())
	assert.Equal(t, "http://localhost:11222", client.BaseURL())
}

func TestRun_HeadersIdenticalAcrossCalls(t *testing.T) {
	server, client := setupFakeServer(t)

	run(t, client, caches.List())
	run(t, client, counters.List())

	requests := server.Requests()
	require.Len(t, requests, 2)
	for _, req := range requests {
		assert.Equal(t, BasicAuth(testUser, testPassword), req.Header.Get("Authorization"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	}
}

func TestRun_ClientsWithDifferentCredentials(t *testing.T) {
	server, good := setupFakeServer(t)

	bad, err := New(DefaultConfig(server.URL(), "someone", "else"))
	require.NoError(t, err)

	status, _ := run(t, good, caches.List())
	assert.Equal(t, http.StatusOK, status)

	status, _ = run(t, bad, caches.List())
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = run(t, good, caches.List())
	assert.Equal(t, http.StatusOK, status)
}

func TestRun_WireShape(t *testing.T) {
	server, client := setupFakeServer(t)

	run(t, client, caches.CreateLocal("books"))
	run(t, client, entries.Create("books", "dune").WithValue("Herbert").WithTTL(5*time.Second))

	last, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/rest/v2/caches/books/dune", last.Path)
	assert.Equal(t, "Herbert", last.Body)
	assert.Equal(t, "5", last.Header.Get("timeToLiveSeconds"))
}

func TestRun_CacheLifecycle(t *testing.T) {
	_, client := setupFakeServer(t)

	status, _ := run(t, client, caches.CreateLocal("test_cache"))
	assert.Equal(t, http.StatusOK, status)

	status, _ = run(t, client, caches.Exists("test_cache"))
	assert.True(t, status >= 200 && status < 300, "exists status %d", status)

	status, _ = run(t, client, caches.CreateLocal("test_cache"))
	assert.Equal(t, http.StatusConflict, status, "duplicate create is reported by status only")

	status, _ = run(t, client, caches.Delete("test_cache"))
	assert.Equal(t, http.StatusOK, status)

	status, _ = run(t, client, caches.Exists("test_cache"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRun_CacheActions(t *testing.T) {
	_, client := setupFakeServer(t)

	run(t, client, caches.CreateDistributedSync("c"))
	run(t, client, entries.Create("c", "a").WithValue("1"))
	run(t, client, entries.Create("c", "b").WithValue("2"))

	status, body := run(t, client, caches.Size("c"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2", body)

	_, body = run(t, client, caches.Keys("c"))
	assert.JSONEq(t, `["a","b"]`, body)

	_, body = run(t, client, caches.GetConfig("c"))
	assert.Contains(t, body, `"distributed-cache"`)

	status, _ = run(t, client, caches.Clear("c"))
	assert.Equal(t, http.StatusNoContent, status)

	_, body = run(t, client, caches.Size("c"))
	assert.Equal(t, "0", body)

	_, body = run(t, client, caches.List())
	assert.JSONEq(t, `["c"]`, body)
}

func TestRun_Entries(t *testing.T) {
	server, client := setupFakeServer(t)
	run(t, client, caches.CreateLocal("some_cache"))

	run(t, client, entries.Create("some_cache", "some_entry").WithValue("a_value"))

	status, body := run(t, client, entries.Get("some_cache", "some_entry"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a_value", body)

	status, _ = run(t, client, entries.Exists("some_cache", "non_existing"))
	assert.Equal(t, http.StatusNotFound, status)

	run(t, client, entries.Update("some_cache", "some_entry", "new_val"))
	_, body = run(t, client, entries.Get("some_cache", "some_entry"))
	assert.Equal(t, "new_val", body)

	run(t, client, entries.Delete("some_cache", "some_entry"))
	status, _ = run(t, client, entries.Exists("some_cache", "some_entry"))
	assert.Equal(t, http.StatusNotFound, status)

	// TTL expiry
	now := time.Now()
	server.Now = func() time.Time { return now }
	run(t, client, entries.Create("some_cache", "short").WithValue("v").WithTTL(5*time.Second))

	status, _ = run(t, client, entries.Exists("some_cache", "short"))
	assert.Equal(t, http.StatusOK, status)

	server.Now = func() time.Time { return now.Add(6 * time.Second) }
	status, _ = run(t, client, entries.Exists("some_cache", "short"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRun_Counters(t *testing.T) {
	_, client := setupFakeServer(t)

	run(t, client, counters.CreateWeak("weak").WithValue(100))
	_, body := run(t, client, counters.Get("weak"))
	assert.Equal(t, "100", body)

	run(t, client, counters.CreateStrong("strong"))
	_, body = run(t, client, counters.Get("strong"))
	assert.Equal(t, "0", body)

	run(t, client, counters.Increment("weak"))
	_, body = run(t, client, counters.Get("weak"))
	assert.Equal(t, "101", body)

	run(t, client, counters.Increment("weak").By(10))
	_, body = run(t, client, counters.Get("weak"))
	assert.Equal(t, "111", body)

	run(t, client, counters.Decrement("weak"))
	_, body = run(t, client, counters.Get("weak"))
	assert.Equal(t, "110", body)

	run(t, client, counters.Reset("weak"))
	_, body = run(t, client, counters.Get("weak"))
	assert.Equal(t, "100", body)

	_, body = run(t, client, counters.CompareAndSet("strong", 0, 5))
	assert.Equal(t, "true", body)
	_, body = run(t, client, counters.CompareAndSet("strong", 0, 7))
	assert.Equal(t, "false", body)

	_, body = run(t, client, counters.CompareAndSwap("strong", 5, 9))
	assert.Equal(t, "5", body)
	_, body = run(t, client, counters.Get("strong"))
	assert.Equal(t, "9", body)

	_, body = run(t, client, counters.GetConfig("weak"))
	assert.JSONEq(t, `{"weak-counter":{"initial-value":100}}`, body)

	_, body = run(t, client, counters.List())
	assert.JSONEq(t, `["strong","weak"]`, body)

	run(t, client, counters.Delete("weak"))
	status, _ := run(t, client, counters.Get("weak"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRun_ErrorStatusIsNotAnError(t *testing.T) {
	server, client := setupFakeServer(t)
	server.SetResponse("/rest/v2/caches/broken", fake.FakeResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "boom",
	})

	status, body := run(t, client, caches.Get("broken"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "boom", body)
}

func TestRun_ConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	client, err := New(DefaultConfig("http://"+addr, "u", "p"))
	require.NoError(t, err)

	before := testutil.ToFloat64(connectionErrorsTotal.WithLabelValues(ResourceCaches))

	resp, err := client.Run(context.Background(), caches.List())
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, http.MethodGet, connErr.Method)
	assert.Equal(t, "http://"+addr+"/rest/v2/caches", connErr.URL)

	after := testutil.ToFloat64(connectionErrorsTotal.WithLabelValues(ResourceCaches))
	assert.Equal(t, before+1, after)
}

func TestRun_MalformedBaseURL(t *testing.T) {
	client, err := New(DefaultConfig("http://[::1", "u", "p"))
	require.NoError(t, err)

	_, err = client.Run(context.Background(), counters.Get("c"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
}

func TestRun_ContextCancelled(t *testing.T) {
	server, client := setupFakeServer(t)
	server.SetResponse("/rest/v2/caches/slow", fake.FakeResponse{
		StatusCode: http.StatusOK,
		Delay:      500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Run(ctx, caches.Get("slow"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRun_Metrics(t *testing.T) {
	_, client := setupFakeServer(t)

	before := testutil.ToFloat64(requestsTotal.WithLabelValues(ResourceEntries, http.MethodGet, "404"))

	run(t, client, caches.CreateLocal("m"))
	run(t, client, entries.Get("m", "missing"))

	after := testutil.ToFloat64(requestsTotal.WithLabelValues(ResourceEntries, http.MethodGet, "404"))
	assert.Equal(t, before+1, after)
}

func TestRun_Concurrent(t *testing.T) {
	_, client := setupFakeServer(t)
	run(t, client, counters.CreateStrong("hits"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Run(context.Background(), counters.Increment("hits"))
			if assert.NoError(t, err) {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	_, body := run(t, client, counters.Get("hits"))
	assert.Equal(t, "20", body)
}

func TestMaterialize(t *testing.T) {
	client, err := New(DefaultConfig("http://localhost:11222", "u", "p"))
	require.NoError(t, err)

	httpReq, err := client.Materialize(context.Background(), entries.Update("c", "e", "v"))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, httpReq.Method)
	assert.Equal(t, "http://localhost:11222/rest/v2/caches/c/e", httpReq.URL.String())
	assert.Equal(t, "Basic dTpw", httpReq.Header.Get("Authorization"))

	body, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)
	assert.Equal(t, "v", string(body))
}

func TestSetHTTPClient(t *testing.T) {
	client, err := New(DefaultConfig("http://infinispan.invalid", "u", "p"))
	require.NoError(t, err)

	var seen string
	client.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.URL.String()
		return &http.Response{
			StatusCode: http.StatusNoContent,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
			Request:    r,
		}, nil
	})})

	resp, err := client.Run(context.Background(), counters.Reset("c"))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://infinispan.invalid/rest/v2/counters/c?action=reset", seen)
}

func TestResourceOf(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/rest/v2/caches", ResourceCaches},
		{"/rest/v2/caches/c", ResourceCaches},
		{"/rest/v2/caches/c?action=keys", ResourceCaches},
		{"/rest/v2/caches/c/e", ResourceEntries},
		{"/rest/v2/counters", ResourceCounters},
		{"/rest/v2/counters/c/config", ResourceCounters},
		{"/prefix/rest/v2/counters/c", ResourceCounters},
		{"/health", ResourceOther},
		{"/rest/v2/container", ResourceOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, resourceOf(tt.path))
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
