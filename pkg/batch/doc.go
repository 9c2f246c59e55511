// Package batch runs many Infinispan requests in parallel.
//
// Infinispan has no bulk REST operation for entries or counters, so loading a
// cache or bumping a set of counters means one request per item. The
// Executor distributes builders across a fixed worker pool:
//
//	exec := batch.NewExecutor(c, batch.DefaultConfig())
//	results, err := exec.Execute(ctx, []request.Builder{
//		entries.Create("users", "alice").WithValue("admin"),
//		entries.Create("users", "bob").WithValue("dev"),
//		counters.Increment("logins"),
//	})
//
// The executor:
//   - Runs at most MaxConcurrency requests at a time (default 10)
//   - Applies Timeout to each request, body read included
//   - Returns one Result per builder in input order
//   - Keeps going when an item fails; HTTP error statuses are results, not errors
//   - Stops dispatching on context cancellation and marks the rest as cancelled
package batch
