// Package request models the requests of the Infinispan REST v2 API.
//
// A Request is a plain value: method, percent-encoded path and query,
// extra headers and an optional body. The subpackages caches, counters and
// entries build Requests for each resource type:
//
//	req := caches.CreateLocal("books")
//	req := entries.Create("books", "dune").WithValue("Herbert").WithTTL(time.Minute)
//	req := counters.Increment("visits").By(10)
//
// Requests are turned into *http.Request values by HTTPRequest, which adds
// the JSON content type and the Authorization header. Executing them is the
// job of the client package.
package request
