package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address is required")
	}
	if c.Server.WebSocketAddress != "" && !strings.HasPrefix(c.Server.WebSocketPath, "/") {
		return fmt.Errorf("server.websocket_path must start with '/', got %q", c.Server.WebSocketPath)
	}
	if c.Server.ReadTimeout < 0 {
		return errors.New("server.read_timeout must be >= 0")
	}
	if c.Server.WriteTimeout < 0 {
		return errors.New("server.write_timeout must be >= 0")
	}

	if c.Mailbox.Capacity < 1 {
		return errors.New("mailbox.capacity must be >= 1")
	}

	if c.Groups.CommandBuffer < 1 {
		return errors.New("groups.command_buffer must be >= 1")
	}
	if c.Groups.StopTimeout <= 0 {
		return errors.New("groups.stop_timeout must be > 0")
	}

	if c.Metrics.Address != "" {
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/', got %q", c.Metrics.Path)
		}
		if c.Metrics.Address == c.Server.Address || c.Metrics.Address == c.Server.WebSocketAddress {
			return fmt.Errorf("metrics.address %s is already used by another listener", c.Metrics.Address)
		}
	}
	if c.Server.WebSocketAddress != "" && c.Server.WebSocketAddress == c.Server.Address {
		return fmt.Errorf("server.websocket_address %s is already used by server.address", c.Server.WebSocketAddress)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}
