// Package metrics exposes the Prometheus registry used by the Infinispan client.
// Metrics are defined in the packages that update them (client, batch) and
// registered via promauto on the default registerer.
package metrics

import (
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Prefix is the name prefix shared by all client metrics.
const Prefix = "infinispan_"

// Registry is the default Prometheus registry used by the client.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry collects.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler serving the gathered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// WriteText writes every metric family from g whose name starts with prefix
// in the Prometheus text exposition format, sorted by name.
func WriteText(w io.Writer, g prometheus.Gatherer, prefix string) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - infinispan_requests_total{resource, method, status} (Counter): requests by
//     resource (caches, entries, counters, other), HTTP method and status code;
//     status is "connection_error" when no response arrived
//   - infinispan_request_duration_seconds{resource, method} (Histogram)
//   - infinispan_connection_errors_total{resource} (Counter): requests that failed
//     before a response, including requests that could not be built
//
// Batch Metrics (pkg/batch):
//   - infinispan_batch_items_total{outcome} (Counter): batch items by outcome
//     (success, http_error, connection_error, cancelled)
//
// Example Prometheus Queries:
//
//   # Connection failure rate
//   rate(infinispan_connection_errors_total[5m])
//
//   # Conflict rate on cache creation
//   rate(infinispan_requests_total{resource="caches", method="POST", status="409"}[5m])
//
//   # P95 counter latency
//   histogram_quantile(0.95, rate(infinispan_request_duration_seconds_bucket{resource="counters"}[5m]))
