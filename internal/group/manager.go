package group

import (
	"context"
	"fmt"
	"sync"

	"github.com/rickgao/groupchat/internal/metrics"
)

// managerCmd is the command interface for the Manager actor.
type managerCmd interface{ isManagerCmd() }

type baseManagerCmd struct{}

func (baseManagerCmd) isManagerCmd() {}

type getGroupCmd struct {
	baseManagerCmd
	name         string
	create       bool
	replyChannel chan *Group
}

type countGroupsCmd struct {
	baseManagerCmd
	replyChannel chan int
}

type stopManagerCmd struct {
	baseManagerCmd
}

// Manager owns the table of groups. Lookups and creation run inside one
// goroutine, so concurrent callers always agree on which Group a name maps to.
// Groups are never removed.
type Manager struct {
	opts  options
	cmdCh chan managerCmd
	done  chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// NewManager starts a group manager.
func NewManager(opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		opts:  o,
		cmdCh: make(chan managerCmd, o.commandBuffer),
		done:  make(chan struct{}),
	}
	go m.run()
	return m
}

// GetOrCreate returns the group called name, creating it if needed.
func (m *Manager) GetOrCreate(ctx context.Context, name string) (*Group, error) {
	g, err := m.getGroup(ctx, name, true)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Lookup returns the group called name without creating it.
func (m *Manager) Lookup(ctx context.Context, name string) (*Group, bool, error) {
	g, err := m.getGroup(ctx, name, false)
	if err != nil {
		return nil, false, err
	}
	return g, g != nil, nil
}

// Join adds member to the group called name, creating the group if needed,
// and returns the group so the caller can post to it directly.
func (m *Manager) Join(ctx context.Context, name string, member Member) (*Group, error) {
	if member == nil {
		return nil, ErrNilMember
	}
	g, err := m.GetOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := g.Join(ctx, member); err != nil {
		return nil, fmt.Errorf("join %s: %w", name, err)
	}
	return g, nil
}

// Len returns the number of groups.
func (m *Manager) Len(ctx context.Context) (int, error) {
	replyCh := make(chan int, 1)
	if err := m.send(ctx, countGroupsCmd{replyChannel: replyCh}); err != nil {
		return 0, err
	}

	select {
	case n := <-replyCh:
		return n, nil
	case <-m.done:
		return 0, ErrManagerStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Stop stops every group and the manager. Later calls return the first result.
func (m *Manager) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() {
		if err := m.send(ctx, stopManagerCmd{}); err != nil {
			m.stopErr = err
			return
		}
		select {
		case <-m.done:
			m.opts.logger.Info("group manager stopped")
		case <-ctx.Done():
			m.stopErr = fmt.Errorf("stop group manager: %w", ctx.Err())
		}
	})
	return m.stopErr
}

func (m *Manager) getGroup(ctx context.Context, name string, create bool) (*Group, error) {
	replyCh := make(chan *Group, 1)
	if err := m.send(ctx, getGroupCmd{name: name, create: create, replyChannel: replyCh}); err != nil {
		return nil, err
	}

	select {
	case g := <-replyCh:
		return g, nil
	case <-m.done:
		return nil, ErrManagerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) send(ctx context.Context, cmd managerCmd) error {
	select {
	case <-m.done:
		return ErrManagerStopped
	default:
	}

	select {
	case m.cmdCh <- cmd:
		return nil
	case <-m.done:
		return ErrManagerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run() {
	defer close(m.done)

	groups := make(map[string]*Group)

	for cmd := range m.cmdCh {
		switch c := cmd.(type) {
		case getGroupCmd:
			g, ok := groups[c.name]
			if !ok && c.create {
				g = newGroup(c.name, m.opts)
				groups[c.name] = g
				metrics.Groups.Set(float64(len(groups)))
				m.opts.logger.Debug("group created", "group", c.name, "groups", len(groups))
			}
			c.replyChannel <- g
		case countGroupsCmd:
			c.replyChannel <- len(groups)
		case stopManagerCmd:
			m.stopGroups(groups)
			return
		default:
			m.opts.logger.Warn("group manager received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

// stopGroups stops every group and waits for them, bounded by the stop timeout.
func (m *Manager) stopGroups(groups map[string]*Group) {
	for _, g := range groups {
		g.stop()
	}

	timeout := m.opts.clock.NewTimer(m.opts.stopTimeout)
	defer timeout.Stop()

	for name, g := range groups {
		select {
		case <-g.done:
		case <-timeout.Chan():
			m.opts.logger.Warn("group stop timeout exceeded",
				"group", name,
				"timeout", m.opts.stopTimeout,
			)
			return
		}
	}
	m.opts.logger.Debug("all groups stopped", "groups", len(groups))
}
