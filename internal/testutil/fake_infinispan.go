// Package testutil provides testing utilities for the Infinispan client.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// FakeResponse defines a canned response for a path.
type FakeResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request as seen by the fake server.
type RecordedRequest struct {
	Method string
	Path   string // escaped path, as sent
	Query  string // raw query
	Header http.Header
	Body   string
}

type fakeEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

type fakeCache struct {
	config  string
	entries map[string]fakeEntry
}

type fakeCounter struct {
	kind    string
	initial int64
	value   int64
	config  string
}

// FakeInfinispan is an in-memory imitation of the Infinispan REST v2 API
// covering caches, entries and counters. It checks Basic credentials and
// records every request.
type FakeInfinispan struct {
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	username string
	password string

	caches   map[string]*fakeCache
	counters map[string]*fakeCounter
	requests []RecordedRequest

	// Now returns the current time. Replace it to move TTLs forward.
	Now func() time.Time
}

// NewFakeInfinispan starts a fake server accepting username and password.
func NewFakeInfinispan(username, password string) *FakeInfinispan {
	fake := &FakeInfinispan{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		username: username,
		password: password,
		caches:   make(map[string]*fakeCache),
		counters: make(map[string]*fakeCounter),
		Now:      time.Now,
	}

	fake.server = httptest.NewServer(http.HandlerFunc(fake.serveHTTP))

	return fake
}

// URL returns the fake server base URL.
func (f *FakeInfinispan) URL() string {
	return f.server.URL
}

// Close shuts down the fake server.
func (f *FakeInfinispan) Close() {
	f.server.Close()
}

// Reset clears all state and recorded requests.
func (f *FakeInfinispan) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caches = make(map[string]*fakeCache)
	f.counters = make(map[string]*fakeCounter)
	f.requests = nil
}

// SetHandler overrides handling of an escaped request path.
func (f *FakeInfinispan) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = handler
}

// SetResponse configures a canned response for an escaped request path.
func (f *FakeInfinispan) SetResponse(path string, resp FakeResponse) {
	f.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// Requests returns a copy of the recorded requests.
func (f *FakeInfinispan) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the most recent request, or false if none was made.
func (f *FakeInfinispan) LastRequest() (RecordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return RecordedRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

// RequestCount returns the number of requests received.
func (f *FakeInfinispan) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *FakeInfinispan) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := r.URL.EscapedPath()

	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	handler, exists := f.handlers[path]
	f.mu.Unlock()

	if exists {
		handler(w, r)
		return
	}

	user, pass, ok := r.BasicAuth()
	if !ok || user != f.username || pass != f.password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	segments, ok := splitPath(path)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	action := r.URL.Query().Get("action")
	switch {
	case len(segments) == 1 && segments[0] == "caches" && r.Method == http.MethodGet:
		writeJSON(w, sortedKeys(f.caches))
	case len(segments) == 2 && segments[0] == "caches":
		f.handleCache(w, r.Method, segments[1], action, body)
	case len(segments) == 3 && segments[0] == "caches":
		f.handleEntry(w, r, segments[1], segments[2], body)
	case len(segments) == 1 && segments[0] == "counters" && r.Method == http.MethodGet:
		writeJSON(w, sortedKeys(f.counters))
	case len(segments) == 2 && segments[0] == "counters":
		f.handleCounter(w, r, segments[1], action, body)
	case len(segments) == 3 && segments[0] == "counters" && segments[2] == "config" && r.Method == http.MethodGet:
		counter, found := f.counters[segments[1]]
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeRaw(w, http.StatusOK, counter.config)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *FakeInfinispan) handleCache(w http.ResponseWriter, method, name, action string, body []byte) {
	cache, found := f.caches[name]

	if method == http.MethodPost && action == "" {
		if found {
			w.WriteHeader(http.StatusConflict)
			return
		}
		var config map[string]json.RawMessage
		if err := json.Unmarshal(body, &config); err != nil || len(config) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.caches[name] = &fakeCache{config: string(body), entries: make(map[string]fakeEntry)}
		w.WriteHeader(http.StatusOK)
		return
	}

	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.expire(cache)

	switch {
	case method == http.MethodHead && action == "":
		w.WriteHeader(http.StatusOK)
	case method == http.MethodGet && action == "":
		writeJSON(w, map[string]interface{}{"name": name, "size": len(cache.entries)})
	case method == http.MethodDelete && action == "":
		delete(f.caches, name)
		w.WriteHeader(http.StatusOK)
	case method == http.MethodGet && action == "config":
		writeRaw(w, http.StatusOK, cache.config)
	case method == http.MethodGet && action == "keys":
		writeJSON(w, sortedKeys(cache.entries))
	case method == http.MethodGet && action == "size":
		writeRaw(w, http.StatusOK, strconv.Itoa(len(cache.entries)))
	case method == http.MethodGet && action == "stats":
		writeJSON(w, map[string]int{"current_number_of_entries": len(cache.entries)})
	case method == http.MethodPost && action == "clear":
		cache.entries = make(map[string]fakeEntry)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *FakeInfinispan) handleEntry(w http.ResponseWriter, r *http.Request, cacheName, key string, body []byte) {
	cache, found := f.caches[cacheName]
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.expire(cache)

	entry, exists := cache.entries[key]

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		if r.Method == http.MethodPost && exists {
			w.WriteHeader(http.StatusConflict)
			return
		}
		stored := fakeEntry{value: string(body)}
		if ttl := r.Header.Get("timeToLiveSeconds"); ttl != "" {
			seconds, err := strconv.ParseInt(ttl, 10, 64)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if seconds > 0 {
				stored.expires = f.Now().Add(time.Duration(seconds) * time.Second)
			}
		}
		cache.entries[key] = stored
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet, http.MethodHead:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeRaw(w, http.StatusOK, entry.value)
	case http.MethodDelete:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(cache.entries, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakeInfinispan) handleCounter(w http.ResponseWriter, r *http.Request, name, action string, body []byte) {
	counter, found := f.counters[name]

	if r.Method == http.MethodPost && action == "" {
		if found {
			w.WriteHeader(http.StatusConflict)
			return
		}
		var config map[string]struct {
			InitialValue *int64 `json:"initial-value"`
		}
		if err := json.Unmarshal(body, &config); err != nil || len(config) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		created := &fakeCounter{config: string(body)}
		for kind, cfg := range config {
			if kind != "weak-counter" && kind != "strong-counter" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			created.kind = kind
			if cfg.InitialValue != nil {
				created.initial = *cfg.InitialValue
			}
		}
		created.value = created.initial
		f.counters[name] = created
		w.WriteHeader(http.StatusOK)
		return
	}

	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	switch {
	case r.Method == http.MethodGet && action == "":
		writeRaw(w, http.StatusOK, strconv.FormatInt(counter.value, 10))
	case r.Method == http.MethodDelete && action == "":
		delete(f.counters, name)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && action == "increment":
		f.addToCounter(w, counter, 1)
	case r.Method == http.MethodPost && action == "decrement":
		f.addToCounter(w, counter, -1)
	case r.Method == http.MethodPost && action == "add":
		delta, err := strconv.ParseInt(query.Get("delta"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.addToCounter(w, counter, delta)
	case r.Method == http.MethodPost && action == "reset":
		counter.value = counter.initial
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && (action == "compareAndSet" || action == "compareAndSwap"):
		expect, errExpect := strconv.ParseInt(query.Get("expect"), 10, 64)
		update, errUpdate := strconv.ParseInt(query.Get("update"), 10, 64)
		if errExpect != nil || errUpdate != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		previous := counter.value
		if previous == expect {
			counter.value = update
		}
		if action == "compareAndSet" {
			writeRaw(w, http.StatusOK, strconv.FormatBool(previous == expect))
		} else {
			writeRaw(w, http.StatusOK, strconv.FormatInt(previous, 10))
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

// addToCounter applies delta. Strong counters answer with the new value,
// weak counters with no content.
func (f *FakeInfinispan) addToCounter(w http.ResponseWriter, counter *fakeCounter, delta int64) {
	counter.value += delta
	if counter.kind == "strong-counter" {
		writeRaw(w, http.StatusOK, strconv.FormatInt(counter.value, 10))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// expire drops entries whose TTL has passed. Caller holds f.mu.
func (f *FakeInfinispan) expire(cache *fakeCache) {
	now := f.Now()
	for key, entry := range cache.entries {
		if !entry.expires.IsZero() && !now.Before(entry.expires) {
			delete(cache.entries, key)
		}
	}
}

// splitPath returns the unescaped segments below /rest/v2/.
func splitPath(escaped string) ([]string, bool) {
	const prefix = "/rest/v2/"
	if !strings.HasPrefix(escaped, prefix) {
		return nil, false
	}
	raw := strings.Split(strings.TrimPrefix(escaped, prefix), "/")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		unescaped, err := url.PathUnescape(segment)
		if err != nil {
			return nil, false
		}
		segments = append(segments, unescaped)
	}
	return segments, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
