package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/groupchat/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Any origin may connect; there is no authentication.
	},
}

// handleWebSocket upgrades the request and serves a session on it until the
// client leaves. The request context derives from the Serve context.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.sessions.Add(1)
	defer s.sessions.Done()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		s.logger.Debug("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	s.serveSession(r.Context(), uuid.New(), newWSConn(conn, s.cfg.ReadTimeout, s.cfg.WriteTimeout), "websocket")
}

// wsConn carries one protocol object per text frame.
type wsConn struct {
	conn         *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, readTimeout, writeTimeout time.Duration) *wsConn {
	conn.SetReadLimit(protocol.MaxLineSize)
	// Answer a client's close frame from Close, after queued replies are
	// flushed, instead of immediately.
	conn.SetCloseHandler(func(int, string) error { return nil })
	return &wsConn{
		conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

func (c *wsConn) ReadRequest() (protocol.Request, error) {
	for {
		if c.readTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}

		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			switch {
			case websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			):
				return protocol.Request{}, io.EOF
			case errors.Is(err, websocket.ErrReadLimit):
				return protocol.Request{}, fmt.Errorf("%w: %w", protocol.ErrMalformed, protocol.ErrLineTooLong)
			}
			return protocol.Request{}, err
		}

		if msgType != websocket.TextMessage {
			return protocol.Request{}, fmt.Errorf("%w: expected text frame", protocol.ErrMalformed)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		return protocol.ParseRequest(data)
	}
}

func (c *wsConn) WriteReply(reply protocol.Reply) error {
	data, err := protocol.Marshal(reply)
	if err != nil {
		return err
	}
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the connection. Safe to call
// concurrently with WriteReply.
func (c *wsConn) Close() error {
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
