// Package counters builds requests for the /rest/v2/counters collection.
package counters

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/Sternrassler/infinispan-client/pkg/request"
)

// Type is the consistency flavour of a counter.
type Type string

const (
	TypeWeak   Type = "weak-counter"
	TypeStrong Type = "strong-counter"
)

// Counter actions. Symbols are rendered with a lowercased first letter.
const (
	symbolAdd            = "Add"
	symbolIncrement      = "Increment"
	symbolDecrement      = "Decrement"
	symbolReset          = "Reset"
	symbolCompareAndSet  = "CompareAndSet"
	symbolCompareAndSwap = "CompareAndSwap"
)

// config is the body of a counter creation request.
type config struct {
	InitialValue *int64 `json:"initial-value,omitempty"`
}

// CreateRequest creates a weak or strong counter. It is an immutable value;
// WithValue returns a modified copy.
type CreateRequest struct {
	name         string
	counterType  Type
	initialValue *int64
}

// CreateWeak returns a request creating a weak counter.
func CreateWeak(name string) CreateRequest {
	return CreateRequest{name: name, counterType: TypeWeak}
}

// CreateStrong returns a request creating a strong counter.
func CreateStrong(name string) CreateRequest {
	return CreateRequest{name: name, counterType: TypeStrong}
}

// WithValue sets the initial value of the counter. Without it the field is
// left out of the body and the server default applies.
func (r CreateRequest) WithValue(value int64) CreateRequest {
	r.initialValue = &value
	return r
}

// Type returns the counter type being created.
func (r CreateRequest) Type() Type {
	return r.counterType
}

// Build implements request.Builder.
func (r CreateRequest) Build() request.Request {
	body, err := json.Marshal(map[Type]config{r.counterType: {InitialValue: r.initialValue}})
	if err != nil {
		panic(fmt.Sprintf("marshal %s: %v", r.counterType, err))
	}
	return request.New(request.MethodPost, request.CounterPath(r.name), nil, request.StringPtr(string(body)))
}

// IncrementRequest increments a counter by one, or by a delta set with By.
type IncrementRequest struct {
	name  string
	delta *int64
}

// Increment returns a request incrementing the named counter.
func Increment(name string) IncrementRequest {
	return IncrementRequest{name: name}
}

// By switches the request to an add of delta.
func (r IncrementRequest) By(delta int64) IncrementRequest {
	r.delta = &delta
	return r
}

func (r IncrementRequest) action() request.Action {
	if r.delta != nil {
		return request.NewAction(symbolAdd, request.Int64Param("delta", *r.delta))
	}
	return request.NewAction(symbolIncrement)
}

// Build implements request.Builder.
func (r IncrementRequest) Build() request.Request {
	return withAction(r.name, r.action())
}

// Get returns a request reading the counter value.
func Get(name string) request.Request {
	return request.New(request.MethodGet, request.CounterPath(name), nil, nil)
}

// GetConfig returns a request reading the counter configuration.
func GetConfig(name string) request.Request {
	return request.New(request.MethodGet, request.CounterPath(name)+"/config", nil, nil)
}

// Decrement returns a request decrementing the counter by one.
func Decrement(name string) request.Request {
	return withAction(name, request.NewAction(symbolDecrement))
}

// Reset returns a request resetting the counter to its initial value.
func Reset(name string) request.Request {
	return withAction(name, request.NewAction(symbolReset))
}

// Delete returns a request removing the counter.
func Delete(name string) request.Request {
	return request.New(request.MethodDelete, request.CounterPath(name), nil, nil)
}

// CompareAndSet returns a request setting the counter to update if it
// currently holds expect. The server answers with a boolean.
func CompareAndSet(name string, expect, update int64) request.Request {
	return withAction(name, request.NewAction(symbolCompareAndSet,
		request.Int64Param("expect", expect),
		request.Int64Param("update", update)))
}

// CompareAndSwap is CompareAndSet answering with the previous value.
func CompareAndSwap(name string, expect, update int64) request.Request {
	return withAction(name, request.NewAction(symbolCompareAndSwap,
		request.Int64Param("expect", expect),
		request.Int64Param("update", update)))
}

// List returns a request listing all counters.
func List() request.Request {
	return request.New(request.MethodGet, request.CountersEndpoint, nil, nil)
}

func withAction(name string, action request.Action) request.Request {
	return request.New(request.MethodPost, request.WithAction(request.CounterPath(name), action), nil, nil)
}
