package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/srishina/notify.go/internal/streamutil"
)

const maxErrorBodySize = 512

// HTTPStreamConn concrete implementation of Connection, when used the
// client opens a long-lived HTTP GET and reads Server-Sent Events or
// newline delimited JSON from the response body.
type HTTPStreamConn struct {
	URL string
	// Header is sent with every request, use it for credentials
	Header http.Header
	// Client defaults to a client without timeout, a stream is expected
	// to stay open forever
	Client *http.Client
	// ClientID identifies this client to the server, generated when empty
	ClientID string

	mu          sync.Mutex
	lastEventID string
}

// StreamURL the stream URL
func (h *HTTPStreamConn) StreamURL() string {
	return h.URL
}

// LastEventID returns the id of the last event received on any stream
// opened through this connection
func (h *HTTPStreamConn) LastEventID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastEventID
}

// Connect issues the GET request and returns once the response headers
// are in. Only a 200 response opens the stream.
func (h *HTTPStreamConn) Connect(ctx context.Context) (FrameReader, error) {
	// the request outlives ctx, which only bounds the handshake
	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, h.URL, http.NoBody)
	if err != nil {
		stop()
		cancel()
		return nil, err
	}
	for k, values := range h.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Client-ID", h.clientID())
	if id := h.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	client := h.Client
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if !stop() {
		// ctx ended while waiting for the headers
		cancel()
		if err == nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, context.Cause(ctx))
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %s %q", ErrUnexpectedStatus, resp.Status, body)
	}

	return &httpFrameReader{
		conn:   h,
		body:   resp.Body,
		events: streamutil.NewEventReader(resp.Body),
		cancel: cancel,
	}, nil
}

func (h *HTTPStreamConn) clientID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ClientID == "" {
		h.ClientID = uuid.NewString()
	}
	return h.ClientID
}

func (h *HTTPStreamConn) setLastEventID(id string) {
	h.mu.Lock()
	h.lastEventID = id
	h.mu.Unlock()
}

type httpFrameReader struct {
	conn      *HTTPStreamConn
	body      io.ReadCloser
	events    *streamutil.EventReader
	cancel    context.CancelFunc
	closeOnce sync.Once
	lastID    string
}

func (r *httpFrameReader) ReadFrame() ([]byte, error) {
	frame, err := r.events.Next()
	if id := r.events.LastEventID(); id != r.lastID {
		r.lastID = id
		r.conn.setLastEventID(id)
	}
	if err == io.EOF {
		return nil, fmt.Errorf("%w: stream closed by server", ErrTransport)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return frame, nil
}

func (r *httpFrameReader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.cancel()
		err = r.body.Close()
	})
	return err
}
