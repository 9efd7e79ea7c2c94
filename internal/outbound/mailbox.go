package outbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/groupchat/internal/metrics"
	"github.com/rickgao/groupchat/internal/protocol"
)

// DefaultCapacity is the number of replies a mailbox holds before dropping.
const DefaultCapacity = 10

// ErrDisconnected is returned by Enqueue once the mailbox has been closed.
var ErrDisconnected = errors.New("mailbox disconnected")

// ReplyWriter delivers replies to the client.
type ReplyWriter interface {
	WriteReply(protocol.Reply) error
}

// event is one queued reply plus the drops that happened just before it.
type event struct {
	reply   protocol.Reply
	dropped int
}

// Mailbox is a bounded, drop-on-full queue of replies for one client.
type Mailbox struct {
	mu    sync.Mutex
	cond  *sync.Cond
	buf   []event
	head  int // read position
	count int

	dropped int // consecutive drops since the last accepted reply
	closed  bool

	// Stats
	totalEnqueued int64
	totalDropped  int64

	logger *slog.Logger
}

// New creates a mailbox holding up to capacity replies.
func New(capacity int, logger *slog.Logger) *Mailbox {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mailbox{
		buf:    make([]event, capacity),
		logger: logger,
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Enqueue offers a group message to the client without blocking.
// A full queue is not an error: the message is dropped and counted.
// Returns ErrDisconnected if the mailbox is closed.
func (m *Mailbox) Enqueue(group, message string) error {
	return m.offer(protocol.MessageReply(group, message))
}

// EnqueueError offers an error reply under the same drop policy as Enqueue.
func (m *Mailbox) EnqueueError(message string) error {
	return m.offer(protocol.ErrorReply(message))
}

func (m *Mailbox) offer(reply protocol.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrDisconnected
	}

	if m.count == len(m.buf) {
		m.dropped++
		m.totalDropped++
		metrics.MessagesDropped.Inc()
		return nil
	}

	tail := (m.head + m.count) % len(m.buf)
	m.buf[tail] = event{reply: reply, dropped: m.dropped}
	m.count++
	m.dropped = 0
	m.totalEnqueued++
	metrics.MessagesEnqueued.Inc()

	m.cond.Signal()
	return nil
}

// Run is the delivery task. It writes queued replies to w until the mailbox
// is closed and drained, ctx is cancelled, or a write fails. A reply that
// follows dropped messages is preceded by a Dropped notice.
//
// The mailbox is closed when Run returns.
func (m *Mailbox) Run(ctx context.Context, w ReplyWriter) error {
	defer m.Close()

	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	for {
		ev, ok := m.receive(ctx)
		if !ok {
			return ctx.Err()
		}

		if ev.dropped > 0 {
			if err := w.WriteReply(protocol.DroppedReply(ev.dropped)); err != nil {
				return fmt.Errorf("write dropped notice: %w", err)
			}
		}
		if err := w.WriteReply(ev.reply); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}
}

// receive blocks until an event is available. Returns false once the mailbox
// is closed and empty, or ctx is done.
func (m *Mailbox) receive(ctx context.Context) (event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.count == 0 && !m.closed && ctx.Err() == nil {
		m.cond.Wait()
	}

	if ctx.Err() != nil || m.count == 0 {
		return event{}, false
	}

	ev := m.buf[m.head]
	m.buf[m.head] = event{} // Clear reference for GC
	m.head = (m.head + 1) % len(m.buf)
	m.count--

	return ev, true
}

// Close marks the mailbox disconnected and wakes the delivery task, which
// flushes what is already queued. Safe to call more than once.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	if m.dropped > 0 {
		m.logger.Debug("mailbox closed with undelivered drops", "dropped", m.dropped)
	}
	m.cond.Broadcast()
}

// Stats returns mailbox statistics.
func (m *Mailbox) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Queued:        m.count,
		Capacity:      len(m.buf),
		PendingDrops:  m.dropped,
		TotalEnqueued: m.totalEnqueued,
		TotalDropped:  m.totalDropped,
		Closed:        m.closed,
	}
}

// Stats contains mailbox statistics.
type Stats struct {
	Queued        int
	Capacity      int
	PendingDrops  int
	TotalEnqueued int64
	TotalDropped  int64
	Closed        bool
}
