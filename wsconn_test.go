package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebsocketServer(t *testing.T, frames []string, hold bool) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer ws.Close()
		for _, f := range frames {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if hold {
			// wait for the client close frame
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	}))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestWebsocketConnFrames(t *testing.T) {
	ts := newWebsocketServer(t, []string{`{"type":"connected"}`, `{"type":"notification","notification":{"id":"w1"}}`}, false)
	defer ts.Close()

	conn := &WebsocketConn{Host: wsURL(ts), Header: http.Header{"Authorization": {"Bearer token"}}}
	assert.Equal(t, wsURL(ts), conn.StreamURL())

	reader, err := conn.Connect(context.Background())
	require.NoError(t, err)
	defer reader.Close()

	frame, err := reader.ReadFrame()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"connected"}`, string(frame))

	frame, err = reader.ReadFrame()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"notification","notification":{"id":"w1"}}`, string(frame))

	_, err = reader.ReadFrame()
	assert.ErrorIs(t, err, ErrTransport)
}

func TestWebsocketConnUnauthorized(t *testing.T) {
	ts := newWebsocketServer(t, nil, false)
	defer ts.Close()

	_, err := (&WebsocketConn{Host: wsURL(ts)}).Connect(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestWebsocketConnClose(t *testing.T) {
	ts := newWebsocketServer(t, nil, true)
	defer ts.Close()

	conn := &WebsocketConn{Host: wsURL(ts), Header: http.Header{"Authorization": {"Bearer token"}}}
	reader, err := conn.Connect(context.Background())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := reader.ReadFrame()
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, reader.Close())
	assert.NoError(t, reader.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrTransport)
	case <-time.After(time.Second):
		require.FailNow(t, "ReadFrame still blocked after Close")
	}
}
