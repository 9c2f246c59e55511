package caches

import (
	json "github.com/goccy/go-json"
)

// Default values applied to every topology.
const (
	DefaultConcurrencyLevel     = 1000
	DefaultAcquireTimeout       = 15000
	DefaultStateTransferTimeout = 60000
	DefaultRemoteTimeout        = 17500
)

// Mode selects synchronous or asynchronous replication.
type Mode string

const (
	ModeSync  Mode = "SYNC"
	ModeAsync Mode = "ASYNC"
)

// Topology is a cache configuration sent on creation. It is implemented by
// Local, Replicated, Distributed and Invalidation only.
type Topology interface {
	// Kind is the JSON tag wrapping the configuration, e.g. "local-cache".
	Kind() string

	topology()
}

// Locking configures lock acquisition on the server.
type Locking struct {
	ConcurrencyLevel int  `json:"concurrency-level"`
	AcquireTimeout   int  `json:"acquire-timeout"`
	Striping         bool `json:"striping"`
}

// StateTransfer configures state transfer when nodes join.
type StateTransfer struct {
	Timeout int `json:"timeout"`
}

// Local is a cache that lives on a single node.
type Local struct {
	Locking    Locking `json:"locking"`
	Statistics bool    `json:"statistics"`
}

// Replicated is a cache copied to every node.
type Replicated struct {
	Mode          Mode          `json:"mode"`
	RemoteTimeout *int          `json:"remote-timeout,omitempty"`
	StateTransfer StateTransfer `json:"state-transfer"`
	Locking       Locking       `json:"locking"`
	Statistics    bool          `json:"statistics"`
}

// Distributed is a cache spread over a subset of owners per key.
type Distributed struct {
	Mode          Mode          `json:"mode"`
	RemoteTimeout *int          `json:"remote-timeout,omitempty"`
	StateTransfer StateTransfer `json:"state-transfer"`
	Locking       Locking       `json:"locking"`
	Statistics    bool          `json:"statistics"`
}

// Invalidation is a cache that invalidates remote copies on write.
type Invalidation struct {
	Mode          Mode    `json:"mode"`
	RemoteTimeout *int    `json:"remote-timeout,omitempty"`
	Locking       Locking `json:"locking"`
	Statistics    bool    `json:"statistics"`
}

func (Local) Kind() string        { return "local-cache" }
func (Replicated) Kind() string   { return "replicated-cache" }
func (Distributed) Kind() string  { return "distributed-cache" }
func (Invalidation) Kind() string { return "invalidation-cache" }

func (Local) topology()        {}
func (Replicated) topology()   {}
func (Distributed) topology()  {}
func (Invalidation) topology() {}

func defaultLocking() Locking {
	return Locking{
		ConcurrencyLevel: DefaultConcurrencyLevel,
		AcquireTimeout:   DefaultAcquireTimeout,
		Striping:         false,
	}
}

// remoteTimeout is only present for synchronous modes.
func remoteTimeout(mode Mode) *int {
	if mode != ModeSync {
		return nil
	}
	timeout := DefaultRemoteTimeout
	return &timeout
}

// NewLocal returns a local cache configuration with default values.
func NewLocal() Local {
	return Local{
		Locking:    defaultLocking(),
		Statistics: true,
	}
}

// NewReplicated returns a replicated cache configuration for mode.
func NewReplicated(mode Mode) Replicated {
	return Replicated{
		Mode:          mode,
		RemoteTimeout: remoteTimeout(mode),
		StateTransfer: StateTransfer{Timeout: DefaultStateTransferTimeout},
		Locking:       defaultLocking(),
		Statistics:    true,
	}
}

// NewDistributed returns a distributed cache configuration for mode.
func NewDistributed(mode Mode) Distributed {
	return Distributed{
		Mode:          mode,
		RemoteTimeout: remoteTimeout(mode),
		StateTransfer: StateTransfer{Timeout: DefaultStateTransferTimeout},
		Locking:       defaultLocking(),
		Statistics:    true,
	}
}

// NewInvalidation returns an invalidation cache configuration for mode.
func NewInvalidation(mode Mode) Invalidation {
	return Invalidation{
		Mode:          mode,
		RemoteTimeout: remoteTimeout(mode),
		Locking:       defaultLocking(),
		Statistics:    true,
	}
}

// MarshalTopology renders t wrapped in its kind tag:
//
//	{"local-cache": {"locking": {...}, "statistics": true}}
func MarshalTopology(t Topology) ([]byte, error) {
	return json.Marshal(map[string]Topology{t.Kind(): t})
}
