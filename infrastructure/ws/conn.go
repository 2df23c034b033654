package ws

import (
	"chat-relay/errors"
	"chat-relay/protocol"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// frameConn adapts a websocket to sink.FrameConn. Only the pump writer
// goroutine calls WriteFrame, pings go through WriteControl which gorilla
// allows concurrently.
type frameConn struct {
	conn   *websocket.Conn
	closed chan struct{}
	once   sync.Once
}

func newFrameConn(conn *websocket.Conn, maxFrameSize int64) *frameConn {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	c := &frameConn{conn: conn, closed: make(chan struct{})}
	go c.keepAlive()
	return c
}

func (c *frameConn) ReadFrame() (protocol.Frame, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return protocol.Frame{}, io.EOF
		}
		return protocol.Frame{}, err
	}
	// Any message renews the deadline, not only pongs
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

	if messageType != websocket.TextMessage {
		return protocol.Frame{}, fmt.Errorf("%w: frames are JSON text messages", errors.ErrInvalidArgument)
	}
	var f protocol.Frame
	if err = json.Unmarshal(data, &f); err != nil {
		return protocol.Frame{}, fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
	}
	return f, nil
}

func (c *frameConn) WriteFrame(f protocol.Frame) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(f)
}

func (c *frameConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}

func (c *frameConn) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
