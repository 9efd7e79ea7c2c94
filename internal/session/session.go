package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rickgao/groupchat/internal/group"
	"github.com/rickgao/groupchat/internal/metrics"
	"github.com/rickgao/groupchat/internal/outbound"
	"github.com/rickgao/groupchat/internal/protocol"
)

// Registry resolves group names. *group.Manager implements it.
type Registry interface {
	Join(ctx context.Context, name string, member group.Member) (*group.Group, error)
}

// Options configures a Session.
type Options struct {
	// MailboxCapacity bounds the outbound queue. Zero means outbound.DefaultCapacity.
	MailboxCapacity int

	// Transport labels the session in metrics and logs ("tcp", "websocket").
	Transport string

	Logger *slog.Logger
}

// Session serves one connected client.
type Session struct {
	id        uuid.UUID
	registry  Registry
	conn      Conn
	mailbox   *outbound.Mailbox
	transport string
	logger    *slog.Logger

	// joined caches the handles returned by Join. Only the Serve goroutine
	// touches it.
	joined map[string]*group.Group
}

// New creates a session for conn.
func New(id uuid.UUID, registry Registry, conn Conn, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	capacity := opts.MailboxCapacity
	if capacity <= 0 {
		capacity = outbound.DefaultCapacity
	}
	transport := opts.Transport
	if transport == "" {
		transport = "tcp"
	}

	logger = logger.With(
		"session_id", id.String(),
		"remote_addr", conn.RemoteAddr(),
		"transport", transport,
	)

	return &Session{
		id:        id,
		registry:  registry,
		conn:      conn,
		mailbox:   outbound.New(capacity, logger),
		transport: transport,
		logger:    logger,
		joined:    make(map[string]*group.Group),
	}
}

// ID returns the session ID.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Serve handles requests until the client disconnects, a request cannot be
// decoded, delivery fails, or ctx is cancelled. The connection is closed on
// return. A clean hangup or cancellation returns nil.
func (s *Session) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.conn.Close()

	metrics.SessionsTotal.WithLabelValues(s.transport).Inc()
	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()

	s.logger.Info("session started")

	// Closing the connection is the only way to unblock a pending read.
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	delivered := make(chan error, 1)
	go func() {
		err := s.mailbox.Run(ctx, s.conn)
		delivered <- err
		if err != nil {
			cancel()
		}
	}()

	readErr := s.readLoop(ctx)

	// Groups still holding the mailbox will see ErrDisconnected on their
	// next post. Replies already queued are flushed before Run returns.
	s.mailbox.Close()
	deliveryErr := <-delivered

	err := s.classify(ctx, readErr, deliveryErr)
	stats := s.mailbox.Stats()
	s.logger.Info("session ended",
		"groups_joined", len(s.joined),
		"replies_enqueued", stats.TotalEnqueued,
		"replies_dropped", stats.TotalDropped,
		"error", err,
	)
	return err
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		req, err := s.conn.ReadRequest()
		if err != nil {
			return err
		}
		if err := s.handle(ctx, req); err != nil {
			return err
		}
	}
}

func (s *Session) handle(ctx context.Context, req protocol.Request) error {
	switch {
	case req.Join != nil:
		name := req.Join.Group
		g, err := s.registry.Join(ctx, name, s.mailbox)
		if err != nil {
			return err
		}
		s.joined[name] = g
		s.logger.Debug("joined group", "group", name)
		return nil

	case req.Post != nil:
		name := req.Post.Group
		g, ok := s.joined[name]
		if !ok {
			metrics.NotMemberErrors.Inc()
			s.logger.Debug("post to group not joined", "group", name)
			return s.mailbox.EnqueueError(fmt.Sprintf("Not a member of '%s'", name))
		}
		if err := g.Post(ctx, req.Post.Message); err != nil {
			return fmt.Errorf("post to %s: %w", name, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: empty request", protocol.ErrMalformed)
	}
}

// classify decides what Serve reports once both sides have stopped.
func (s *Session) classify(ctx context.Context, readErr, deliveryErr error) error {
	switch {
	case errors.Is(readErr, protocol.ErrMalformed):
		metrics.ProtocolErrors.Inc()
		s.logger.Warn("closing session after malformed request", "error", readErr)
		return readErr
	case deliveryErr != nil && !isCancellation(deliveryErr):
		s.logger.Debug("reply delivery failed", "error", deliveryErr)
		return deliveryErr
	case errors.Is(readErr, io.EOF), ctx.Err() != nil:
		return nil
	case errors.Is(readErr, outbound.ErrDisconnected):
		return nil
	default:
		return readErr
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
