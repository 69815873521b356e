// Package main is the entry point of the folio admin CLI and reference server.
package main

import (
	"context"
	"fmt"
	"folio/cmd/folio/commands"
	"folio/internal/types"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New(os.Stdout, os.Getenv)
	cli.SetArgs(args)
	if err := cli.Execute(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error: "+types.UserMessage(err))
		return 1
	}
	return 0
}
