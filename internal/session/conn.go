package session

import (
	"net"
	"time"

	"github.com/rickgao/groupchat/internal/protocol"
)

// Conn is a bidirectional request/reply stream to one client.
// ReadRequest is only called from the session goroutine and WriteReply only
// from the delivery task, so implementations need not lock either side.
type Conn interface {
	// ReadRequest returns the next request, or io.EOF when the client hangs up.
	ReadRequest() (protocol.Request, error)

	// WriteReply sends one reply.
	WriteReply(protocol.Reply) error

	// Close closes the underlying connection. It must unblock ReadRequest.
	Close() error

	// RemoteAddr identifies the peer in logs.
	RemoteAddr() string
}

// LineConn speaks newline-delimited JSON over a stream connection.
type LineConn struct {
	conn         net.Conn
	dec          *protocol.Decoder
	enc          *protocol.Encoder
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewLineConn wraps conn. A zero timeout disables that deadline.
func NewLineConn(conn net.Conn, readTimeout, writeTimeout time.Duration) *LineConn {
	return &LineConn{
		conn:         conn,
		dec:          protocol.NewDecoder(conn),
		enc:          protocol.NewEncoder(conn),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ReadRequest reads the next request line.
func (c *LineConn) ReadRequest() (protocol.Request, error) {
	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return c.dec.ReadRequest()
}

// WriteReply writes one reply line.
func (c *LineConn) WriteReply(reply protocol.Reply) error {
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.enc.WriteReply(reply)
}

// Close closes the connection.
func (c *LineConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address.
func (c *LineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
