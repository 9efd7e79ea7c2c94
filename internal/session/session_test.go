package session

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/groupchat/internal/group"
	"github.com/rickgao/groupchat/internal/protocol"
)

// testClient is the far end of a net.Pipe whose near end is served by a Session.
type testClient struct {
	conn net.Conn
	enc  *protocol.Encoder
	dec  *protocol.Decoder
	done chan error
}

func newManager(t *testing.T) *group.Manager {
	t.Helper()
	m := group.NewManager()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Stop(ctx)
	})
	return m
}

func connect(t *testing.T, ctx context.Context, mgr *group.Manager) *testClient {
	t.Helper()

	serverSide, clientSide := net.Pipe()
	s := New(uuid.New(), mgr, NewLineConn(serverSide, 0, time.Second), Options{})

	c := &testClient{
		conn: clientSide,
		enc:  protocol.NewEncoder(clientSide),
		dec:  protocol.NewDecoder(clientSide),
		done: make(chan error, 1),
	}
	go func() { c.done <- s.Serve(ctx) }()
	t.Cleanup(func() { clientSide.Close() })
	return c
}

func (c *testClient) send(t *testing.T, req protocol.Request) {
	t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := c.enc.WriteRequest(req); err != nil {
		t.Fatalf("send %s: %v", req, err)
	}
}

func (c *testClient) expect(t *testing.T) protocol.Reply {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply, err := c.dec.ReadReply()
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	return reply
}

func (c *testClient) expectMessage(t *testing.T, name, message string) {
	t.Helper()
	reply := c.expect(t)
	if reply.Message == nil || reply.Message.Group != name || reply.Message.Message != message {
		t.Fatalf("got %+v, want Message{%s, %s}", reply, name, message)
	}
}

func (c *testClient) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-c.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
		return nil
	}
}

// waitMembers polls until the group exists with n members.
func waitMembers(t *testing.T, mgr *group.Manager, name string, n int) *group.Group {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if g, ok, _ := mgr.Lookup(ctx, name); ok {
			if got, _ := g.Members(ctx); got == n {
				return g
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("group %s never reached %d members", name, n)
	return nil
}

func TestSession_PostReachesAllMembers(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	a := connect(t, ctx, mgr)
	b := connect(t, ctx, mgr)

	a.send(t, protocol.NewJoin("g"))
	b.send(t, protocol.NewJoin("g"))
	waitMembers(t, mgr, "g", 2)

	a.send(t, protocol.NewPost("g", "hi"))

	b.expectMessage(t, "g", "hi")
	a.expectMessage(t, "g", "hi")
}

func TestSession_PostWithoutJoin(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	c := connect(t, ctx, mgr)
	c.send(t, protocol.NewPost("h", "hello?"))

	reply := c.expect(t)
	if reply.Error == nil || reply.Error.Message != "Not a member of 'h'" {
		t.Fatalf("got %+v, want Error{Not a member of 'h'}", reply)
	}

	if _, ok, _ := mgr.Lookup(ctx, "h"); ok {
		t.Error("posting without joining created group h")
	}

	// The session stays usable after the error.
	c.send(t, protocol.NewJoin("h"))
	c.send(t, protocol.NewPost("h", "now"))
	c.expectMessage(t, "h", "now")
}

func TestSession_DisconnectedMemberPruned(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	d := connect(t, ctx, mgr)
	e := connect(t, ctx, mgr)

	d.send(t, protocol.NewJoin("g"))
	e.send(t, protocol.NewJoin("g"))
	g := waitMembers(t, mgr, "g", 2)

	d.conn.Close()
	if err := d.wait(t); err != nil {
		t.Fatalf("Serve after hangup = %v, want nil", err)
	}

	e.send(t, protocol.NewPost("g", "still here"))
	e.expectMessage(t, "g", "still here")

	n, err := g.Members(ctx)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Members = %d after post, want 1", n)
	}
}

func TestSession_MalformedRequestEndsSession(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	c := connect(t, ctx, mgr)

	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.conn.Write([]byte("{\"Shout\":{\"group\":\"g\"}}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := c.wait(t)
	if !errors.Is(err, protocol.ErrMalformed) {
		t.Fatalf("Serve = %v, want ErrMalformed", err)
	}

	// The server side closed its end.
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.dec.ReadReply(); err == nil {
		t.Error("read succeeded after protocol error")
	}
}

func TestSession_MalformedDoesNotAffectOthers(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	good := connect(t, ctx, mgr)
	bad := connect(t, ctx, mgr)

	good.send(t, protocol.NewJoin("g"))
	bad.send(t, protocol.NewJoin("g"))
	waitMembers(t, mgr, "g", 2)

	bad.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	bad.conn.Write([]byte("not json\n"))
	bad.wait(t)

	good.send(t, protocol.NewPost("g", "ok"))
	good.expectMessage(t, "g", "ok")
}

func TestSession_DuplicateJoinDeliversTwice(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	c := connect(t, ctx, mgr)
	c.send(t, protocol.NewJoin("g"))
	c.send(t, protocol.NewJoin("g"))
	waitMembers(t, mgr, "g", 2)

	c.send(t, protocol.NewPost("g", "twice"))
	c.expectMessage(t, "g", "twice")
	c.expectMessage(t, "g", "twice")
}

func TestSession_ContextCancelEndsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mgr := newManager(t)

	c := connect(t, ctx, mgr)
	c.send(t, protocol.NewJoin("g"))
	waitMembers(t, mgr, "g", 1)

	cancel()
	if err := c.wait(t); err != nil {
		t.Errorf("Serve after cancel = %v, want nil", err)
	}
}

func TestSession_ClientStopsReading(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	slow := connect(t, ctx, mgr)
	fast := connect(t, ctx, mgr)

	slow.send(t, protocol.NewJoin("g"))
	fast.send(t, protocol.NewJoin("g"))
	waitMembers(t, mgr, "g", 2)

	// slow never reads. Posting far past its queue capacity must not stall
	// the group or the poster.
	for i := 0; i < 50; i++ {
		fast.send(t, protocol.NewPost("g", "spam"))
		fast.expectMessage(t, "g", "spam")
	}
}
