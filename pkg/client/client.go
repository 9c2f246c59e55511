// Package client provides the Infinispan REST client: it attaches
// authentication to requests built by the request packages and dispatches
// them over HTTP.
package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/infinispan-client/pkg/logging"
	"github.com/Sternrassler/infinispan-client/pkg/request"
)

// Prometheus metrics for Infinispan client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "infinispan_requests_total",
		Help: "Total Infinispan REST requests by resource, method and status",
	}, []string{"resource", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "infinispan_request_duration_seconds",
		Help:    "Infinispan REST request duration in seconds by resource and method",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"resource", "method"})

	connectionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "infinispan_connection_errors_total",
		Help: "Total requests that failed before a response was received, by resource",
	}, []string{"resource"})
)

// Resource labels used in metrics and logs.
const (
	ResourceCaches   = "caches"
	ResourceEntries  = "entries"
	ResourceCounters = "counters"
	ResourceOther    = "other"
)

// Client is the Infinispan REST client. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	basicAuth  string
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the server, e.g. "http://localhost:11222".
	// Request paths are appended verbatim, so no trailing slash.
	BaseURL string

	// Credentials for HTTP Basic authentication.
	Username string
	Password string

	// Timeout of the default HTTP client. Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient replaces the default HTTP client (optional).
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration with a 30 second request timeout.
func DefaultConfig(baseURL, username, password string) Config {
	return Config{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
		Timeout:  30 * time.Second,
	}
}

// New creates a new Infinispan client. The Authorization header value is
// computed here once and reused for every request.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		basicAuth:  BasicAuth(cfg.Username, cfg.Password),
		config:     cfg,
		logger:     logging.NewLogger("infinispan-client"),
	}, nil
}

// BasicAuth returns the Authorization header value for username and password.
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Run builds the request, dispatches it and returns the response as
// received. HTTP error statuses are not errors: a 404 comes back as a normal
// response for the caller to inspect. The only error is *ConnectionError,
// returned when the request cannot be built or no response arrives.
// The caller must close the response body.
func (c *Client) Run(ctx context.Context, b request.Builder) (*http.Response, error) {
	httpReq, err := c.Materialize(ctx, b)
	if err != nil {
		return nil, err
	}
	return c.Do(httpReq)
}

// Materialize turns a builder into the *http.Request Run would send.
func (c *Client) Materialize(ctx context.Context, b request.Builder) (*http.Request, error) {
	req := b.Build()

	httpReq, err := req.HTTPRequest(ctx, c.baseURL, c.basicAuth)
	if err != nil {
		resource := resourceOf(req.PathAndQuery)
		connectionErrorsTotal.WithLabelValues(resource).Inc()
		c.logger.Error().
			Err(err).
			Str("resource", resource).
			Str("method", req.Method.String()).
			Msg("Failed to build Infinispan request")
		return nil, &ConnectionError{
			Method: req.Method.String(),
			URL:    c.baseURL + req.PathAndQuery,
			Err:    err,
		}
	}

	return httpReq, nil
}

// Do sends an already materialized request. No headers are added; use
// Materialize or Run to get authentication.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resource := resourceOf(req.URL.EscapedPath())
	method := req.Method

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(resource, method).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		connectionErrorsTotal.WithLabelValues(resource).Inc()
		requestsTotal.WithLabelValues(resource, method, "connection_error").Inc()
		c.logger.Error().
			Err(err).
			Str("resource", resource).
			Str("method", method).
			Msg("Infinispan request failed")
		return nil, &ConnectionError{
			Method: method,
			URL:    req.URL.String(),
			Err:    err,
		}
	}

	requestsTotal.WithLabelValues(resource, method, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("resource", resource).
		Str("method", method).
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("Infinispan request completed")

	return resp, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AuthorizationHeader returns the precomputed Authorization header value.
func (c *Client) AuthorizationHeader() string {
	return c.basicAuth
}

// SetHTTPClient sets a custom HTTP client. Call it before sharing the client
// between goroutines.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Close releases idle connections held by the HTTP client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// resourceOf classifies a request path for metric labels. Entry paths have
// two segments below the caches collection.
func resourceOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	const prefix = "/rest/v2/"
	i := strings.Index(path, prefix)
	if i < 0 {
		return ResourceOther
	}
	segments := strings.Split(strings.Trim(path[i+len(prefix):], "/"), "/")

	switch segments[0] {
	case "counters":
		return ResourceCounters
	case "caches":
		if len(segments) >= 3 {
			return ResourceEntries
		}
		return ResourceCaches
	default:
		return ResourceOther
	}
}
