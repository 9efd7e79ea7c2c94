package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAddress       = "127.0.0.1:7878"
	DefaultWebSocketPath = "/ws"
	DefaultWriteTimeout  = 10 * time.Second
	DefaultCapacity      = 10
	DefaultCommandBuffer = 64
	DefaultStopTimeout   = 10 * time.Second
	DefaultMetricsPath   = "/metrics"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.WebSocketPath == "" {
		c.Server.WebSocketPath = DefaultWebSocketPath
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}

	if c.Mailbox.Capacity == 0 {
		c.Mailbox.Capacity = DefaultCapacity
	}

	// Groups defaults
	if c.Groups.CommandBuffer == 0 {
		c.Groups.CommandBuffer = DefaultCommandBuffer
	}
	if c.Groups.StopTimeout == 0 {
		c.Groups.StopTimeout = DefaultStopTimeout
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
