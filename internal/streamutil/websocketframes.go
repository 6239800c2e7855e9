package streamutil

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// WebsocketFrames reads one frame per websocket data message.
type WebsocketFrames struct {
	*websocket.Conn
	closeOnce sync.Once
}

func NewWebsocketFrames(c *websocket.Conn, readLimit int64) *WebsocketFrames {
	if readLimit > 0 {
		c.SetReadLimit(readLimit)
	}
	return &WebsocketFrames{Conn: c}
}

func (w *WebsocketFrames) ReadFrame() ([]byte, error) {
	_, p, err := w.ReadMessage()
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Close sends a normal closure and releases the underlying connection.
// Safe to call more than once and concurrently with ReadFrame.
func (w *WebsocketFrames) Close() error {
	var err error
	w.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = w.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = w.Conn.Close()
	})
	return err
}
