package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAction_Name(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"Clear", "clear"},
		{"Config", "config"},
		{"Keys", "keys"},
		{"Size", "size"},
		{"Stats", "stats"},
		{"Increment", "increment"},
		{"Add", "add"},
		{"CompareAndSet", "compareAndSet"},
		{"CompareAndSwap", "compareAndSwap"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			assert.Equal(t, tt.want, NewAction(tt.symbol).Name())
		})
	}
}

func TestAction_Query(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{
			name:   "no params",
			action: NewAction("Keys"),
			want:   "action=keys",
		},
		{
			name:   "single param",
			action: NewAction("Add", Int64Param("delta", 10)),
			want:   "action=add&delta=10",
		},
		{
			name:   "params keep order",
			action: NewAction("CompareAndSet", Int64Param("expect", 1), Int64Param("update", -2)),
			want:   "action=compareAndSet&expect=1&update=-2",
		},
		{
			name:   "escaped value",
			action: NewAction("Keys", Param{Key: "filter", Value: "a b&c"}),
			want:   "action=keys&filter=a+b%26c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.Query())
		})
	}
}

func TestWithAction(t *testing.T) {
	got := WithAction(CounterPath("hits"), NewAction("Reset"))
	assert.Equal(t, "/rest/v2/counters/hits?action=reset", got)
}

func TestPaths_PercentEncodeOnce(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"plain cache", CachePath("books"), "/rest/v2/caches/books"},
		{"space and slash", CachePath("a b/c"), "/rest/v2/caches/a%20b%2Fc"},
		{"already encoded", CachePath("a%20b"), "/rest/v2/caches/a%2520b"},
		{"unreserved kept", CachePath("A-z_0.9~"), "/rest/v2/caches/A-z_0.9~"},
		{"utf8", CachePath("é"), "/rest/v2/caches/%C3%A9"},
		{"entry", EntryPath("my cache", "key?1"), "/rest/v2/caches/my%20cache/key%3F1"},
		{"counter", CounterPath("c&d"), "/rest/v2/counters/c%26d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
