package notify

import (
	"context"
)

// Connection represents the transport the client uses to open the
// notification stream. Implementations are responsible for dialing the
// server (HTTP streaming, WebSocket, ...) and splitting the body into
// frames. HTTPStreamConn and WebsocketConn are provided as part of the
// library, other transports can be written by the implementations.
type Connection interface {
	// StreamURL the address of the stream endpoint, used for logging
	StreamURL() string
	// Connect is called every time the client needs a fresh stream. It
	// must return once the stream is open, the returned FrameReader is
	// then read until it fails. A failing Connect counts as a failed
	// attempt and is retried after the backoff delay.
	Connect(ctx context.Context) (FrameReader, error)
}

// FrameReader yields the frames of one open stream
type FrameReader interface {
	// ReadFrame blocks until the next frame arrives. A nil frame with a
	// nil error is a transport level keep-alive: it proves liveness but
	// carries nothing to dispatch.
	ReadFrame() ([]byte, error)
	// Close releases the stream, any blocked ReadFrame returns an error.
	// Close may be called more than once and concurrently with ReadFrame.
	Close() error
}
