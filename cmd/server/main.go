// Command server runs the group chat broker.
//
// Usage:
//
//	server ADDRESS
//
// Optional settings are read from the YAML file named by GROUPCHAT_CONFIG and
// from GROUPCHAT_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/groupchat/internal/config"
	"github.com/rickgao/groupchat/internal/group"
	"github.com/rickgao/groupchat/internal/logging"
	"github.com/rickgao/groupchat/internal/server"
	"github.com/rickgao/groupchat/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(os.Stderr, "Usage: server ADDRESS")
		return 2
	}

	cfg, err := config.FromEnvironment(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	// Set up structured logging
	logger := logging.Init(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	v, commit, _ := version.Info()
	logger.Info("starting groupchat server",
		"version", v,
		"commit", commit,
		"address", cfg.Server.Address,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	manager := group.NewManager(
		group.WithLogger(logger),
		group.WithCommandBuffer(cfg.Groups.CommandBuffer),
		group.WithStopTimeout(cfg.Groups.StopTimeout),
	)

	srv := server.New(server.Config{
		Address:          cfg.Server.Address,
		WebSocketAddress: cfg.Server.WebSocketAddress,
		WebSocketPath:    cfg.Server.WebSocketPath,
		MetricsAddress:   cfg.Metrics.Address,
		MetricsPath:      cfg.Metrics.Path,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		MailboxCapacity:  cfg.Mailbox.Capacity,
	}, manager, logger)

	if err := srv.Listen(); err != nil {
		logger.Error("failed to bind", "error", err)
		return 1
	}

	serveErr := srv.Serve(ctx)

	logger.Info("shutting down...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Groups.StopTimeout*2)
	defer stopCancel()
	if err := manager.Stop(stopCtx); err != nil {
		logger.Warn("group manager did not stop cleanly", "error", err)
	}

	if serveErr != nil {
		logger.Error("server failed", "error", serveErr)
		return 1
	}
	logger.Info("server stopped")
	return 0
}
