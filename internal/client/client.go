package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/rickgao/groupchat/internal/protocol"
)

const dialTimeout = 10 * time.Second

// Config wires the client to its terminal.
type Config struct {
	In     io.Reader // commands, default os.Stdin
	Out    io.Writer // replies, default os.Stdout
	Err    io.Writer // parse complaints, default os.Stderr
	Logger *slog.Logger
}

// Client is one connection to a chat server.
type Client struct {
	conn   transport
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

// Dial connects to address, either host:port for TCP or a ws:// URL.
func Dial(ctx context.Context, address string, cfg Config) (*Client, error) {
	conn, err := dialTransport(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}
	return newClient(conn, cfg), nil
}

// New wraps an established stream connection.
func New(conn net.Conn, cfg Config) *Client {
	return newClient(newLineTransport(conn), cfg)
}

func newClient(conn transport, cfg Config) *Client {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Err == nil {
		cfg.Err = os.Stderr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		conn:   conn,
		in:     cfg.In,
		out:    cfg.Out,
		errOut: cfg.Err,
		logger: cfg.Logger,
	}
}

// Run sends commands and prints replies until the server closes the
// connection, a side fails, or ctx is cancelled. The connection is closed on
// return.
func (c *Client) Run(ctx context.Context) error {
	defer c.conn.Close()

	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	received := make(chan error, 1)
	sent := make(chan error, 1)

	go func() { received <- c.receive() }()
	// Reading stdin cannot be interrupted; this goroutine may outlive Run.
	go func() { sent <- c.send() }()

	select {
	case err := <-received:
		return c.result(ctx, err)
	case err := <-sent:
		if err != nil {
			return c.result(ctx, err)
		}
		// Input is done. Let the server flush what it has queued for us.
		if err := c.conn.CloseWrite(); err != nil {
			c.logger.Debug("half-close failed", "error", err)
			return nil
		}
		return c.result(ctx, <-received)
	}
}

func (c *Client) result(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, io.EOF) || ctx.Err() != nil {
		return nil
	}
	return err
}

// receive prints replies until the server hangs up.
func (c *Client) receive() error {
	for {
		reply, err := c.conn.ReadReply()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read reply: %w", err)
		}
		if _, err := fmt.Fprintln(c.out, FormatReply(reply)); err != nil {
			return err
		}
	}
}

// send forwards parsed commands. Lines that do not parse are reported and
// skipped. Returns nil when input ends.
func (c *Client) send() error {
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 4096), protocol.MaxLineSize)

	for scanner.Scan() {
		req, err := ParseCommand(scanner.Text())
		switch {
		case errors.Is(err, ErrEmptyCommand):
			continue
		case err != nil:
			fmt.Fprintln(c.errOut, err)
			continue
		}

		if err := c.conn.WriteRequest(req); err != nil {
			return fmt.Errorf("send %s: %w", req, err)
		}
	}
	return scanner.Err()
}
