// Package caches builds requests for the /rest/v2/caches collection.
package caches

import (
	"fmt"

	"github.com/Sternrassler/infinispan-client/pkg/request"
)

// Cache actions. Their wire names are the lowercased symbols.
var (
	actionClear  = request.NewAction("Clear")
	actionConfig = request.NewAction("Config")
	actionKeys   = request.NewAction("Keys")
	actionSize   = request.NewAction("Size")
	actionStats  = request.NewAction("Stats")
)

// Create returns a request creating the named cache with topology t.
func Create(name string, t Topology) request.Request {
	body, err := MarshalTopology(t)
	if err != nil {
		// Topologies are fixed structs of ints, bools and strings.
		panic(fmt.Sprintf("marshal %s: %v", t.Kind(), err))
	}
	return request.New(request.MethodPost, request.CachePath(name), nil, request.StringPtr(string(body)))
}

// CreateLocal returns a request creating a local cache.
func CreateLocal(name string) request.Request {
	return Create(name, NewLocal())
}

// CreateReplicatedAsync returns a request creating an asynchronous replicated cache.
func CreateReplicatedAsync(name string) request.Request {
	return Create(name, NewReplicated(ModeAsync))
}

// CreateReplicatedSync returns a request creating a synchronous replicated cache.
func CreateReplicatedSync(name string) request.Request {
	return Create(name, NewReplicated(ModeSync))
}

// CreateDistributedAsync returns a request creating an asynchronous distributed cache.
func CreateDistributedAsync(name string) request.Request {
	return Create(name, NewDistributed(ModeAsync))
}

// CreateDistributedSync returns a request creating a synchronous distributed cache.
func CreateDistributedSync(name string) request.Request {
	return Create(name, NewDistributed(ModeSync))
}

// CreateInvalidationAsync returns a request creating an asynchronous invalidation cache.
func CreateInvalidationAsync(name string) request.Request {
	return Create(name, NewInvalidation(ModeAsync))
}

// CreateInvalidationSync returns a request creating a synchronous invalidation cache.
func CreateInvalidationSync(name string) request.Request {
	return Create(name, NewInvalidation(ModeSync))
}

// Exists returns a HEAD request for the named cache.
func Exists(name string) request.Request {
	return request.New(request.MethodHead, request.CachePath(name), nil, nil)
}

// Get returns a GET request for the named cache.
func Get(name string) request.Request {
	return request.New(request.MethodGet, request.CachePath(name), nil, nil)
}

// GetConfig returns a request reading the cache configuration.
func GetConfig(name string) request.Request {
	return withAction(request.MethodGet, name, actionConfig)
}

// Delete returns a request removing the named cache.
func Delete(name string) request.Request {
	return request.New(request.MethodDelete, request.CachePath(name), nil, nil)
}

// Keys returns a request listing the keys of the cache.
func Keys(name string) request.Request {
	return withAction(request.MethodGet, name, actionKeys)
}

// Clear returns a request removing every entry of the cache.
func Clear(name string) request.Request {
	return withAction(request.MethodPost, name, actionClear)
}

// Size returns a request counting the entries of the cache.
func Size(name string) request.Request {
	return withAction(request.MethodGet, name, actionSize)
}

// Stats returns a request reading the cache statistics.
func Stats(name string) request.Request {
	return withAction(request.MethodGet, name, actionStats)
}

// List returns a request listing all caches.
func List() request.Request {
	return request.New(request.MethodGet, request.CachesEndpoint, nil, nil)
}

func withAction(method request.Method, name string, action request.Action) request.Request {
	return request.New(method, request.WithAction(request.CachePath(name), action), nil, nil)
}
