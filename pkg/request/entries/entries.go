// Package entries builds requests for entries stored under
// /rest/v2/caches/{cache}/{entry}.
package entries

import (
	"strconv"
	"time"

	"github.com/Sternrassler/infinispan-client/pkg/request"
)

// HeaderTTL carries the entry lifespan in whole seconds.
const HeaderTTL = "timeToLiveSeconds"

// CreateRequest creates an entry. It is an immutable value; WithValue and
// WithTTL return modified copies.
type CreateRequest struct {
	cache string
	entry string
	value *string
	ttl   *time.Duration
}

// Create returns a request creating entry in cache.
func Create(cache, entry string) CreateRequest {
	return CreateRequest{cache: cache, entry: entry}
}

// WithValue sets the raw value sent as body.
func (r CreateRequest) WithValue(value string) CreateRequest {
	r.value = &value
	return r
}

// WithTTL sets the entry lifespan. It is sent truncated to whole seconds.
func (r CreateRequest) WithTTL(ttl time.Duration) CreateRequest {
	r.ttl = &ttl
	return r
}

// Build implements request.Builder.
func (r CreateRequest) Build() request.Request {
	headers := map[string]string{}
	if r.ttl != nil {
		headers[HeaderTTL] = strconv.FormatInt(int64(*r.ttl/time.Second), 10)
	}
	return request.New(request.MethodPost, request.EntryPath(r.cache, r.entry), headers, r.value)
}

// Get returns a request reading the entry value.
func Get(cache, entry string) request.Request {
	return request.New(request.MethodGet, request.EntryPath(cache, entry), nil, nil)
}

// Exists returns a HEAD request for the entry.
func Exists(cache, entry string) request.Request {
	return request.New(request.MethodHead, request.EntryPath(cache, entry), nil, nil)
}

// Update returns a request replacing the entry value. The value is sent as
// the raw body.
func Update(cache, entry, value string) request.Request {
	return request.New(request.MethodPut, request.EntryPath(cache, entry), nil, request.StringPtr(value))
}

// Delete returns a request removing the entry.
func Delete(cache, entry string) request.Request {
	return request.New(request.MethodDelete, request.EntryPath(cache, entry), nil, nil)
}
