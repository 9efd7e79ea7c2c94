package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/groupchat/internal/metrics"
	"github.com/rickgao/groupchat/internal/outbound"
)

// Errors
var (
	ErrGroupStopped   = errors.New("group stopped")
	ErrManagerStopped = errors.New("group manager stopped")
	ErrNilMember      = errors.New("nil member")
)

// Member is a group's non-owning handle on one client's outbound mailbox.
// Enqueue must not block. Returning outbound.ErrDisconnected removes the
// member from the group; any other result keeps it.
type Member interface {
	Enqueue(group, message string) error
}

// groupCmd is the command interface for the Group actor.
type groupCmd interface{ isGroupCmd() }

type baseGroupCmd struct{}

func (baseGroupCmd) isGroupCmd() {}

type joinCmd struct {
	baseGroupCmd
	member Member
}

type postCmd struct {
	baseGroupCmd
	message string
}

type membersCmd struct {
	baseGroupCmd
	replyChannel chan int
}

// Group is a named set of members. Posted messages are offered to every
// member in one pass that also drops disconnected members.
type Group struct {
	name   string
	cmdCh  chan groupCmd
	quit   chan struct{}
	done   chan struct{}
	logger *slog.Logger

	stopOnce sync.Once
}

// newGroup starts a group actor. Only the Manager creates groups.
func newGroup(name string, o options) *Group {
	g := &Group{
		name:   name,
		cmdCh:  make(chan groupCmd, o.commandBuffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: o.logger.With("group", name),
	}
	go g.run()
	return g
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// Join adds member to the group. Joining twice adds a second entry, which
// then receives every post twice.
func (g *Group) Join(ctx context.Context, member Member) error {
	if member == nil {
		return ErrNilMember
	}
	return g.send(ctx, joinCmd{member: member})
}

// Post offers message to every current member. It returns once the command
// is queued; the group never waits on a member.
func (g *Group) Post(ctx context.Context, message string) error {
	return g.send(ctx, postCmd{message: message})
}

// Members returns the current number of member entries.
func (g *Group) Members(ctx context.Context) (int, error) {
	replyCh := make(chan int, 1)
	if err := g.send(ctx, membersCmd{replyChannel: replyCh}); err != nil {
		return 0, err
	}

	select {
	case n := <-replyCh:
		return n, nil
	case <-g.done:
		return 0, ErrGroupStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (g *Group) send(ctx context.Context, cmd groupCmd) error {
	select {
	case <-g.done:
		return ErrGroupStopped
	default:
	}

	select {
	case g.cmdCh <- cmd:
		return nil
	case <-g.done:
		return ErrGroupStopped
	case <-ctx.Done():
		return fmt.Errorf("group %s: %w", g.name, ctx.Err())
	}
}

// stop asks the actor to exit. Commands still queued are discarded.
func (g *Group) stop() {
	g.stopOnce.Do(func() { close(g.quit) })
}

func (g *Group) run() {
	defer close(g.done)

	var members []Member

	for {
		select {
		case <-g.quit:
			g.logger.Debug("group stopped", "members", len(members))
			return

		case cmd := <-g.cmdCh:
			switch c := cmd.(type) {
			case joinCmd:
				members = append(members, c.member)
				metrics.JoinsTotal.Inc()
				g.logger.Debug("member joined", "members", len(members))
			case postCmd:
				members = g.fanout(members, c.message)
			case membersCmd:
				c.replyChannel <- len(members)
			default:
				g.logger.Warn("group received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

// fanout enqueues message to each member and returns the members to keep.
func (g *Group) fanout(members []Member, message string) []Member {
	metrics.PostsTotal.Inc()
	metrics.FanoutSize.Observe(float64(len(members)))

	kept := members[:0]
	pruned := 0
	for _, m := range members {
		err := m.Enqueue(g.name, message)
		switch {
		case err == nil:
			kept = append(kept, m)
		case errors.Is(err, outbound.ErrDisconnected):
			pruned++
		default:
			g.logger.Warn("member enqueue failed", "error", err)
			kept = append(kept, m)
		}
	}

	// Release pruned handles so their mailboxes can be collected.
	clear(members[len(kept):])

	if pruned > 0 {
		metrics.MembersPruned.Add(float64(pruned))
		g.logger.Debug("pruned disconnected members", "pruned", pruned, "members", len(kept))
	}
	return kept
}
