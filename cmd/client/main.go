// Command client is an interactive chat client.
//
// Usage:
//
//	client ADDRESS
//
// Type "join GROUP" or "post GROUP MESSAGE..." on standard input.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/groupchat/internal/client"
	"github.com/rickgao/groupchat/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(os.Stderr, "Usage: client ADDRESS")
		return 2
	}

	// Diagnostics go to stderr so stdout carries only replies.
	logger := logging.New(os.Stderr, os.Getenv("GROUPCHAT_LOG_LEVEL"), "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, args[0], client.Config{Logger: logger})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := c.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
