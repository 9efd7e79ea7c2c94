package config

import "time"

// Config is the server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Mailbox MailboxConfig `yaml:"mailbox" envPrefix:"MAILBOX_"`
	Groups  GroupsConfig  `yaml:"groups" envPrefix:"GROUPS_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Address          string        `yaml:"address" env:"ADDRESS"`
	WebSocketAddress string        `yaml:"websocket_address" env:"WEBSOCKET_ADDRESS"`
	WebSocketPath    string        `yaml:"websocket_path" env:"WEBSOCKET_PATH"`
	ReadTimeout      time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout     time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

// MailboxConfig holds per-client outbound queue settings.
type MailboxConfig struct {
	Capacity int `yaml:"capacity" env:"CAPACITY"`
}

// GroupsConfig holds group actor settings.
type GroupsConfig struct {
	CommandBuffer int           `yaml:"command_buffer" env:"COMMAND_BUFFER"`
	StopTimeout   time.Duration `yaml:"stop_timeout" env:"STOP_TIMEOUT"`
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	Address string `yaml:"address" env:"ADDRESS"`
	Path    string `yaml:"path" env:"PATH"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}
