package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/infinispan-client/pkg/batch"
	"github.com/Sternrassler/infinispan-client/pkg/client"
	"github.com/Sternrassler/infinispan-client/pkg/logging"
	"github.com/Sternrassler/infinispan-client/pkg/metrics"
	"github.com/Sternrassler/infinispan-client/pkg/request"
	"github.com/Sternrassler/infinispan-client/pkg/request/caches"
	"github.com/Sternrassler/infinispan-client/pkg/request/counters"
	"github.com/Sternrassler/infinispan-client/pkg/request/entries"
)

// Context provides access to the resolved configuration and client within
// command handlers.
type Context struct {
	Config Config
	Client *client.Client
	cliCtx *cli.Context
}

// Arg returns the i-th positional argument.
func (c *Context) Arg(i int) string {
	return c.cliCtx.Args().Get(i)
}

// Int64Arg parses the i-th positional argument as a signed integer.
func (c *Context) Int64Arg(i int) (int64, error) {
	v, err := strconv.ParseInt(c.Arg(i), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("argument %d: %w", i+1, err)
	}
	return v, nil
}

func (c *Context) ctx() context.Context {
	if c.cliCtx.Context != nil {
		return c.cliCtx.Context
	}
	return context.Background()
}

// run dispatches b and prints the response.
func (c *Context) run(b request.Builder) error {
	resp, err := c.Client.Run(c.ctx(), b)
	if err != nil {
		return err
	}
	return printResponse(c.cliCtx.App.Writer, c.Config.Output, resp)
}

// runner returns an action that dispatches the builder made from the args.
func runner(build func(ctx *Context) (request.Builder, error)) func(ctx *Context) error {
	return func(ctx *Context) error {
		b, err := build(ctx)
		if err != nil {
			return err
		}
		return ctx.run(b)
	}
}

// cmd creates a command taking exactly nargs positional arguments.
func cmd(name, argsUsage, usage string, nargs int, action func(ctx *Context) error, flags ...cli.Flag) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: argsUsage,
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != nargs {
				return fmt.Errorf("%s: expected %d argument(s) %s, got %d", c.Command.FullName(), nargs, argsUsage, c.NArg())
			}

			ctx, err := newContext(c)
			if err != nil {
				return err
			}
			defer ctx.Client.Close()

			err = action(ctx)

			if c.Bool("metrics") {
				if werr := metrics.WriteText(c.App.ErrWriter, metrics.Gatherer, metrics.Prefix); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}
}

func newContext(c *cli.Context) (*Context, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return nil, err
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: true,
		Output: c.App.ErrWriter,
	})

	cl, err := client.New(client.Config{
		BaseURL:  cfg.URL,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return &Context{
		Config: cfg,
		Client: cl,
		cliCtx: c,
	}, nil
}

func cacheCommand() *cli.Command {
	byName := func(fn func(name string) request.Request) func(ctx *Context) error {
		return runner(func(ctx *Context) (request.Builder, error) {
			return fn(ctx.Arg(0)), nil
		})
	}

	return &cli.Command{
		Name:  "cache",
		Usage: "Manage caches",
		Subcommands: []*cli.Command{
			cmd("create", "<name>", "Create a cache", 1, runner(buildCacheCreate),
				&cli.StringFlag{Name: "mode", Value: "local", Usage: "Topology (local, replicated, distributed, invalidation)"},
				&cli.BoolFlag{Name: "async", Usage: "Use asynchronous replication"},
			),
			cmd("exists", "<name>", "Check whether a cache exists", 1, byName(caches.Exists)),
			cmd("get", "<name>", "Get cache details", 1, byName(caches.Get)),
			cmd("config", "<name>", "Get the cache configuration", 1, byName(caches.GetConfig)),
			cmd("delete", "<name>", "Delete a cache", 1, byName(caches.Delete)),
			cmd("keys", "<name>", "List the keys of a cache", 1, byName(caches.Keys)),
			cmd("clear", "<name>", "Remove every entry of a cache", 1, byName(caches.Clear)),
			cmd("size", "<name>", "Count the entries of a cache", 1, byName(caches.Size)),
			cmd("stats", "<name>", "Get cache statistics", 1, byName(caches.Stats)),
			cmd("list", "", "List cache names", 0, runner(func(*Context) (request.Builder, error) {
				return caches.List(), nil
			})),
		},
	}
}

func buildCacheCreate(ctx *Context) (request.Builder, error) {
	name := ctx.Arg(0)
	async := ctx.cliCtx.Bool("async")

	switch mode := ctx.cliCtx.String("mode"); mode {
	case "local":
		if async {
			return nil, fmt.Errorf("local caches do not replicate; --async is not allowed")
		}
		return caches.CreateLocal(name), nil
	case "replicated":
		if async {
			return caches.CreateReplicatedAsync(name), nil
		}
		return caches.CreateReplicatedSync(name), nil
	case "distributed":
		if async {
			return caches.CreateDistributedAsync(name), nil
		}
		return caches.CreateDistributedSync(name), nil
	case "invalidation":
		if async {
			return caches.CreateInvalidationAsync(name), nil
		}
		return caches.CreateInvalidationSync(name), nil
	default:
		return nil, fmt.Errorf("unknown cache mode %q (want local, replicated, distributed or invalidation)", mode)
	}
}

func entryCommand() *cli.Command {
	byKey := func(fn func(cache, entry string) request.Request) func(ctx *Context) error {
		return runner(func(ctx *Context) (request.Builder, error) {
			return fn(ctx.Arg(0), ctx.Arg(1)), nil
		})
	}

	return &cli.Command{
		Name:  "entry",
		Usage: "Manage cache entries",
		Subcommands: []*cli.Command{
			cmd("create", "<cache> <key>", "Create an entry", 2, runner(func(ctx *Context) (request.Builder, error) {
				b := entries.Create(ctx.Arg(0), ctx.Arg(1))
				if ctx.cliCtx.IsSet("value") {
					b = b.WithValue(ctx.cliCtx.String("value"))
				}
				if ctx.cliCtx.IsSet("ttl") {
					b = b.WithTTL(ctx.cliCtx.Duration("ttl"))
				}
				return b, nil
			}),
				&cli.StringFlag{Name: "value", Usage: "Entry value"},
				&cli.DurationFlag{Name: "ttl", Usage: "Time to live, truncated to whole seconds"},
			),
			cmd("get", "<cache> <key>", "Get an entry value", 2, byKey(entries.Get)),
			cmd("exists", "<cache> <key>", "Check whether an entry exists", 2, byKey(entries.Exists)),
			cmd("delete", "<cache> <key>", "Delete an entry", 2, byKey(entries.Delete)),
			cmd("update", "<cache> <key> <value>", "Replace an entry value", 3, runner(func(ctx *Context) (request.Builder, error) {
				return entries.Update(ctx.Arg(0), ctx.Arg(1), ctx.Arg(2)), nil
			})),
			cmd("load", "<cache> <file>", "Create entries from a YAML or JSON map of key to value", 2, loadEntries,
				&cli.IntFlag{Name: "concurrency", Value: batch.DefaultConfig().MaxConcurrency, Usage: "Requests in flight"},
				&cli.DurationFlag{Name: "ttl", Usage: "Time to live for every entry"},
			),
		},
	}
}

// loadEntries creates one entry per key of the input file and prints one
// status line per key.
func loadEntries(ctx *Context) error {
	cache, path := ctx.Arg(0), ctx.Arg(1)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading entries file: %w", err)
	}

	var values map[string]string
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	builders := make([]request.Builder, len(keys))
	for i, k := range keys {
		b := entries.Create(cache, k).WithValue(values[k])
		if ctx.cliCtx.IsSet("ttl") {
			b = b.WithTTL(ctx.cliCtx.Duration("ttl"))
		}
		builders[i] = b
	}

	exec := batch.NewExecutor(ctx.Client, batch.Config{
		MaxConcurrency: ctx.cliCtx.Int("concurrency"),
		Timeout:        ctx.Config.Timeout,
	})
	results, err := exec.Execute(ctx.ctx(), builders)
	if err != nil {
		return err
	}

	w := ctx.cliCtx.App.Writer
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s error: %v\n", keys[r.Index], r.Err)
			continue
		}
		fmt.Fprintf(w, "%s %d %s\n", keys[r.Index], r.StatusCode, http.StatusText(r.StatusCode))
	}

	summary := batch.Summarize(results)
	if failed := len(results) - summary.Success; failed > 0 {
		return fmt.Errorf("%d of %d entries failed", failed, len(results))
	}
	return nil
}

func counterCommand() *cli.Command {
	byName := func(fn func(name string) request.Request) func(ctx *Context) error {
		return runner(func(ctx *Context) (request.Builder, error) {
			return fn(ctx.Arg(0)), nil
		})
	}

	compare := func(fn func(name string, expect, update int64) request.Request) func(ctx *Context) error {
		return runner(func(ctx *Context) (request.Builder, error) {
			expect, err := ctx.Int64Arg(1)
			if err != nil {
				return nil, err
			}
			update, err := ctx.Int64Arg(2)
			if err != nil {
				return nil, err
			}
			return fn(ctx.Arg(0), expect, update), nil
		})
	}

	return &cli.Command{
		Name:  "counter",
		Usage: "Manage counters",
		Subcommands: []*cli.Command{
			cmd("create", "<name>", "Create a counter", 1, runner(func(ctx *Context) (request.Builder, error) {
				b := counters.CreateWeak(ctx.Arg(0))
				if ctx.cliCtx.Bool("strong") {
					b = counters.CreateStrong(ctx.Arg(0))
				}
				if ctx.cliCtx.IsSet("value") {
					b = b.WithValue(ctx.cliCtx.Int64("value"))
				}
				return b, nil
			}),
				&cli.BoolFlag{Name: "strong", Usage: "Create a strong counter instead of a weak one"},
				&cli.Int64Flag{Name: "value", Usage: "Initial value"},
			),
			cmd("get", "<name>", "Get the counter value", 1, byName(counters.Get)),
			cmd("config", "<name>", "Get the counter configuration", 1, byName(counters.GetConfig)),
			cmd("increment", "<name>", "Increment the counter", 1, runner(func(ctx *Context) (request.Builder, error) {
				b := counters.Increment(ctx.Arg(0))
				if ctx.cliCtx.IsSet("by") {
					b = b.By(ctx.cliCtx.Int64("by"))
				}
				return b, nil
			}),
				&cli.Int64Flag{Name: "by", Usage: "Add this delta instead of one"},
			),
			cmd("decrement", "<name>", "Decrement the counter", 1, byName(counters.Decrement)),
			cmd("reset", "<name>", "Reset the counter to its initial value", 1, byName(counters.Reset)),
			cmd("delete", "<name>", "Delete the counter", 1, byName(counters.Delete)),
			cmd("cas", "<name> <expect> <update>", "Compare and swap, printing the previous value", 3, compare(counters.CompareAndSwap)),
			cmd("cset", "<name> <expect> <update>", "Compare and set, printing true or false", 3, compare(counters.CompareAndSet)),
			cmd("list", "", "List counter names", 0, runner(func(*Context) (request.Builder, error) {
				return counters.List(), nil
			})),
		},
	}
}
