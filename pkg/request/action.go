package request

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Action is a query-string encoded verb selecting a non-CRUD operation on a
// resource, e.g. "?action=keys" on a cache or
// "?action=compareAndSet&expect=1&update=2" on a counter.
type Action struct {
	// Symbol is the action's symbolic name, e.g. "Keys" or "CompareAndSet".
	Symbol string

	// Params follow the action parameter in order.
	Params []Param
}

// Param is one extra query parameter of an Action.
type Param struct {
	Key   string
	Value string
}

// NewAction creates an Action from its symbolic name.
func NewAction(symbol string, params ...Param) Action {
	return Action{Symbol: symbol, Params: params}
}

// Int64Param creates a Param holding a decimal integer.
func Int64Param(key string, value int64) Param {
	return Param{Key: key, Value: strconv.FormatInt(value, 10)}
}

// Name returns the wire name of the action: the symbol with its leading
// letter lowercased. Single word symbols end up fully lowercase ("Keys" ->
// "keys"); compound counter symbols keep their inner capitals
// ("CompareAndSet" -> "compareAndSet").
func (a Action) Name() string {
	r, size := utf8.DecodeRuneInString(a.Symbol)
	if r == utf8.RuneError {
		return a.Symbol
	}
	return string(unicode.ToLower(r)) + a.Symbol[size:]
}

// Query renders the action as a query string without the leading "?".
func (a Action) Query() string {
	var b strings.Builder
	b.WriteString("action=")
	b.WriteString(url.QueryEscape(a.Name()))
	for _, p := range a.Params {
		b.WriteByte('&')
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// WithAction appends the action query string to a path.
func WithAction(path string, action Action) string {
	return path + "?" + action.Query()
}
