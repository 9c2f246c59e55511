// Command infinispan-cli manages caches, entries and counters on an
// Infinispan server through its REST API.
//
// Usage:
//
//	infinispan-cli --url http://localhost:11222 --user admin --password secret cache create --mode distributed books
//	infinispan-cli --config profile.yaml entry create --ttl 30s books isbn-123 "Dune"
//	infinispan-cli counter increment --by 5 visits
//
// Flags go before positional arguments. Every command prints the response
// status line followed by the body, and exits non-zero on a non-2xx status.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "infinispan-cli",
		Usage:     "Manage an Infinispan server over REST",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			cacheCommand(),
			entryCommand(),
			counterCommand(),
		},
	}
}
