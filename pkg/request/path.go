package request

import (
	"fmt"

	"github.com/jtacoma/uritemplates"
)

// Resource collection endpoints of the REST v2 API.
const (
	CachesEndpoint   = "/rest/v2/caches"
	CountersEndpoint = "/rest/v2/counters"
)

// Path templates. Simple RFC 6570 expansion percent-encodes everything
// outside the unreserved set, so "/" inside a name becomes %2F.
var (
	cacheTemplate   = mustParse(CachesEndpoint + "/{cache}")
	entryTemplate   = mustParse(CachesEndpoint + "/{cache}/{entry}")
	counterTemplate = mustParse(CountersEndpoint + "/{counter}")
)

// CachePath returns the path of the named cache.
func CachePath(cache string) string {
	return expand(cacheTemplate, map[string]interface{}{"cache": cache})
}

// EntryPath returns the path of an entry inside the named cache.
func EntryPath(cache, entry string) string {
	return expand(entryTemplate, map[string]interface{}{"cache": cache, "entry": entry})
}

// CounterPath returns the path of the named counter.
func CounterPath(counter string) string {
	return expand(counterTemplate, map[string]interface{}{"counter": counter})
}

func mustParse(template string) *uritemplates.UriTemplate {
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		panic(fmt.Sprintf("parse uri template %q: %v", template, err))
	}
	return tmpl
}

func expand(tmpl *uritemplates.UriTemplate, vars map[string]interface{}) string {
	expanded, err := tmpl.Expand(vars)
	if err != nil {
		// Only string variables are ever passed, which cannot fail to expand.
		panic(fmt.Sprintf("expand uri template: %v", err))
	}
	return expanded
}
