package request

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Method is the HTTP method of an Infinispan REST request.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodHead   Method = http.MethodHead
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// String returns the method as sent on the wire.
func (m Method) String() string {
	return string(m)
}

// Header names set on every request.
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"

	ContentTypeJSON = "application/json"
)

// Builder is implemented by every value that can be turned into a Request.
// Request itself is a Builder, so plain requests and fluent builders such as
// entries.CreateRequest can be passed to the client the same way.
type Builder interface {
	Build() Request
}

// Request is a transport-agnostic description of one REST call.
type Request struct {
	// Method is the HTTP method.
	Method Method

	// PathAndQuery is the percent-encoded path plus any query string,
	// e.g. "/rest/v2/caches/books?action=size".
	PathAndQuery string

	// Headers are sent in addition to Content-Type and Authorization.
	// Names keep their exact casing on the wire.
	Headers map[string]string

	// Body is sent as-is. Nil means an empty body.
	Body *string
}

// New creates a Request. A nil headers map is replaced by an empty one.
func New(method Method, pathAndQuery string, headers map[string]string, body *string) Request {
	if headers == nil {
		headers = map[string]string{}
	}
	return Request{
		Method:       method,
		PathAndQuery: pathAndQuery,
		Headers:      headers,
		Body:         body,
	}
}

// Build implements Builder.
func (r Request) Build() Request {
	return r
}

// BodyString returns the body, or "" when the request has none.
func (r Request) BodyString() string {
	if r.Body == nil {
		return ""
	}
	return *r.Body
}

// HTTPRequest materializes the request against baseURL. Content-Type and
// Authorization are always set first, then the request specific headers are
// applied on top. The URL is baseURL followed by PathAndQuery, without any
// normalization.
func (r Request) HTTPRequest(ctx context.Context, baseURL, basicAuth string) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, r.Method.String(), baseURL+r.PathAndQuery, strings.NewReader(r.BodyString()))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", r.Method, err)
	}

	httpReq.Header.Set(HeaderContentType, ContentTypeJSON)
	httpReq.Header.Set(HeaderAuthorization, basicAuth)

	for name, value := range r.Headers {
		// Direct map assignment keeps custom header casing (timeToLiveSeconds).
		httpReq.Header[name] = []string{value}
	}

	return httpReq, nil
}

// StringPtr returns a pointer to s. Handy for building Request bodies.
func StringPtr(s string) *string {
	return &s
}
