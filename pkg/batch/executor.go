package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/infinispan-client/pkg/logging"
	"github.com/Sternrassler/infinispan-client/pkg/request"
)

// Outcome labels for batch items.
const (
	OutcomeSuccess         = "success"
	OutcomeHTTPError       = "http_error"
	OutcomeConnectionError = "connection_error"
	OutcomeCancelled       = "cancelled"
)

var itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "infinispan_batch_items_total",
	Help: "Total batch items by outcome (success, http_error, connection_error, cancelled)",
}, []string{"outcome"})

// Config holds executor configuration
type Config struct {
	// MaxConcurrency is the maximum number of requests in flight
	MaxConcurrency int
	// Timeout per request, including reading the response body
	Timeout time.Duration
}

// DefaultConfig returns the default executor configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
	}
}

// Runner dispatches a single request. *client.Client implements it.
type Runner interface {
	Run(ctx context.Context, b request.Builder) (*http.Response, error)
}

// Result is the outcome of one batch item. Body holds the full response body;
// Err is set when no response was received or the body could not be read.
type Result struct {
	Index      int
	Request    request.Request
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

// OK reports whether a 2xx response was received.
func (r Result) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Outcome classifies the result for metrics and summaries.
func (r Result) Outcome() string {
	switch {
	case r.Err != nil && (errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, errNotDispatched)):
		return OutcomeCancelled
	case r.Err != nil:
		return OutcomeConnectionError
	case r.StatusCode < 200 || r.StatusCode >= 300:
		return OutcomeHTTPError
	default:
		return OutcomeSuccess
	}
}

// Summary counts results by outcome.
type Summary struct {
	Success         int
	HTTPError       int
	ConnectionError int
	Cancelled       int
}

// Summarize counts results by outcome.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome() {
		case OutcomeSuccess:
			s.Success++
		case OutcomeHTTPError:
			s.HTTPError++
		case OutcomeConnectionError:
			s.ConnectionError++
		case OutcomeCancelled:
			s.Cancelled++
		}
	}
	return s
}

var errNotDispatched = errors.New("request not dispatched")

// Executor runs builders through a Runner with bounded concurrency
type Executor struct {
	runner Runner
	config Config
	logger zerolog.Logger
}

// NewExecutor creates a new executor. Non-positive config values fall back
// to DefaultConfig.
func NewExecutor(runner Runner, config Config) *Executor {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &Executor{
		runner: runner,
		config: config,
		logger: logging.NewLogger("batch"),
	}
}

// Execute runs every builder and returns one Result per builder, in input
// order. A failed item does not stop the others. When ctx is cancelled no
// further items are dispatched; those items carry an error wrapping the
// context error, and Execute returns it too.
func (e *Executor) Execute(ctx context.Context, builders []request.Builder) ([]Result, error) {
	start := time.Now()

	results := make([]Result, len(builders))
	for i, b := range builders {
		results[i] = Result{Index: i, Request: b.Build()}
	}
	if len(builders) == 0 {
		return results, nil
	}

	workers := e.config.MaxConcurrency
	if workers > len(builders) {
		workers = len(builders)
	}

	e.logger.Info().
		Int("items", len(builders)).
		Int("workers", workers).
		Msg("Starting batch")

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := range builders {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	dispatched := make([]bool, len(builders))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				dispatched[i] = true
				e.runOne(ctx, builders[i], &results[i])
			}
		}()
	}
	wg.Wait()

	ctxErr := ctx.Err()
	interrupted := false
	for i := range results {
		if !dispatched[i] {
			interrupted = true
			results[i].Err = fmt.Errorf("%w: %w", errNotDispatched, ctxErr)
		}
		outcome := results[i].Outcome()
		itemsTotal.WithLabelValues(outcome).Inc()
		if outcome == OutcomeConnectionError || outcome == OutcomeCancelled {
			e.logger.Warn().
				Err(results[i].Err).
				Int("index", i).
				Str("method", results[i].Request.Method.String()).
				Msg("Batch item failed")
		}
	}

	summary := Summarize(results)
	e.logger.Info().
		Int("items", len(results)).
		Int("success", summary.Success).
		Int("http_error", summary.HTTPError).
		Int("connection_error", summary.ConnectionError).
		Int("cancelled", summary.Cancelled).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	if interrupted {
		return results, fmt.Errorf("batch interrupted: %w", ctxErr)
	}
	return results, nil
}

// runOne dispatches a single item and reads its body before the item
// deadline is released.
func (e *Executor) runOne(ctx context.Context, b request.Builder, res *Result) {
	itemCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	resp, err := e.runner.Run(itemCtx, b)
	if err != nil {
		res.Err = err
		return
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Header = resp.Header

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = fmt.Errorf("read response body: %w", err)
		return
	}
	res.Body = body

	e.logger.Debug().
		Int("index", res.Index).
		Int("status_code", res.StatusCode).
		Msg("Batch item complete")
}
