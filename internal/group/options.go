package group

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults for actor tuning.
const (
	DefaultCommandBuffer = 64
	DefaultStopTimeout   = 10 * time.Second
)

type options struct {
	logger        *slog.Logger
	clock         clockwork.Clock
	commandBuffer int
	stopTimeout   time.Duration
}

func defaultOptions() options {
	return options{
		logger:        slog.Default(),
		clock:         clockwork.NewRealClock(),
		commandBuffer: DefaultCommandBuffer,
		stopTimeout:   DefaultStopTimeout,
	}
}

// Option configures a Manager and the groups it creates.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock used for stop timeouts.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithCommandBuffer sets the command channel size of the Manager and of each Group.
func WithCommandBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.commandBuffer = n
		}
	}
}

// WithStopTimeout bounds how long Stop waits for actors to exit.
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.stopTimeout = d
		}
	}
}
