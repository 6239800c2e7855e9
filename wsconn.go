package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/srishina/notify.go/internal/streamutil"
)

const defaultWebsocketReadLimit = 1 << 20

// WebsocketConn concrete implementation of Connection, when used the
// client reads the notification stream from a WebSocket. Every text or
// binary message is one frame.
type WebsocketConn struct {
	Host      string
	Header    http.Header
	TLSConfig *tls.Config
	// ReadLimit maximum size of a single message, 1MiB when zero
	ReadLimit int64
}

// StreamURL the stream URL
func (w *WebsocketConn) StreamURL() string {
	return w.Host
}

// Connect dials the WebSocket endpoint
func (w *WebsocketConn) Connect(ctx context.Context) (FrameReader, error) {
	dialer := &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: false,
		TLSClientConfig:   w.TLSConfig,
	}
	ws, resp, err := dialer.DialContext(ctx, w.Host, w.Header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	limit := w.ReadLimit
	if limit == 0 {
		limit = defaultWebsocketReadLimit
	}
	return &websocketFrameReader{frames: streamutil.NewWebsocketFrames(ws, limit)}, nil
}

type websocketFrameReader struct {
	frames *streamutil.WebsocketFrames
}

func (r *websocketFrameReader) ReadFrame() ([]byte, error) {
	frame, err := r.frames.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return frame, nil
}

func (r *websocketFrameReader) Close() error {
	return r.frames.Close()
}
