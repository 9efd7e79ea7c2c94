package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/groupchat/internal/protocol"
)

var errNoHalfClose = errors.New("transport cannot half-close")

// transport moves requests out and replies in.
type transport interface {
	WriteRequest(protocol.Request) error
	ReadReply() (protocol.Reply, error)
	// CloseWrite tells the server no more requests are coming.
	CloseWrite() error
	Close() error
}

// dialTransport picks a transport from the address: ws:// and wss:// URLs use
// WebSocket, anything else is a TCP host:port.
func dialTransport(ctx context.Context, address string) (transport, error) {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return dialWebSocket(ctx, address)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return newLineTransport(conn), nil
}

// lineTransport speaks newline-delimited JSON over a stream.
type lineTransport struct {
	conn net.Conn
	*protocol.Encoder
	*protocol.Decoder
}

func newLineTransport(conn net.Conn) *lineTransport {
	return &lineTransport{
		conn:    conn,
		Encoder: protocol.NewEncoder(conn),
		Decoder: protocol.NewDecoder(conn),
	}
}

func (t *lineTransport) CloseWrite() error {
	if hc, ok := t.conn.(interface{ CloseWrite() error }); ok {
		return hc.CloseWrite()
	}
	return errNoHalfClose
}

func (t *lineTransport) Close() error {
	return t.conn.Close()
}

// wsTransport carries one object per text frame.
type wsTransport struct {
	conn *websocket.Conn
}

func dialWebSocket(ctx context.Context, url string) (*wsTransport, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(protocol.MaxLineSize)
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) WriteRequest(req protocol.Request) error {
	data, err := protocol.Marshal(req)
	if err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) ReadReply() (protocol.Reply, error) {
	msgType, data, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return protocol.Reply{}, io.EOF
		}
		return protocol.Reply{}, err
	}
	if msgType != websocket.TextMessage {
		return protocol.Reply{}, fmt.Errorf("%w: expected text frame", protocol.ErrMalformed)
	}
	return protocol.ParseReply(data)
}

// CloseWrite starts the closing handshake. The server flushes queued replies
// before answering with its own close frame.
func (t *wsTransport) CloseWrite() error {
	return t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
