// Package transport
package transport

import (
	"io"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// NewWebSocket frames c, one frame per binary message.
func NewWebSocket(c *websocket.Conn) Transport {
	return New(&wsConn{Conn: c})
}

type wsConn struct {
	*websocket.Conn
	reader io.Reader
}

func (ws *wsConn) Read(buf []byte) (int, error) {
	for ws.reader == nil {
		typ, r, err := ws.NextReader()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if typ == websocket.BinaryMessage {
			ws.reader = r
		}
	}

	n, err := ws.reader.Read(buf)
	if err == io.EOF {
		ws.reader = nil
		err = nil
	}
	return n, err
}

func (ws *wsConn) Write(buf []byte) (int, error) {
	err := ws.Conn.WriteMessage(websocket.BinaryMessage, buf)
	return len(buf), err
}

func (ws *wsConn) Close() error {
	_ = ws.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	return ws.Conn.Close()
}
