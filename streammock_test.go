package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errMockClosed = errors.New("mock stream closed")

// streamMock is a Connection whose streams are driven by the test
type streamMock struct {
	mu        sync.Mutex
	attempts  int
	failNext  int
	failErr   error
	block     bool
	streams   []*mockStream
	connected chan *mockStream
}

func newStreamMock() *streamMock {
	return &streamMock{connected: make(chan *mockStream, 16)}
}

func (m *streamMock) StreamURL() string {
	return "mock://stream"
}

func (m *streamMock) Connect(ctx context.Context) (FrameReader, error) {
	m.mu.Lock()
	m.attempts++
	if m.failNext > 0 {
		m.failNext--
		err := m.failErr
		m.mu.Unlock()
		if err == nil {
			err = ErrTransport
		}
		return nil, err
	}
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	s := &mockStream{
		frames: make(chan []byte, 16),
		failed: make(chan error, 1),
		closed: make(chan struct{}),
	}
	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()
	m.connected <- s
	return s, nil
}

func (m *streamMock) setFailures(n int, err error) {
	m.mu.Lock()
	m.failNext = n
	m.failErr = err
	m.mu.Unlock()
}

func (m *streamMock) setBlocking(block bool) {
	m.mu.Lock()
	m.block = block
	m.mu.Unlock()
}

func (m *streamMock) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *streamMock) openStreams() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.streams {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

// waitStream returns the next stream handed to the client
func (m *streamMock) waitStream(timeout time.Duration) *mockStream {
	select {
	case s := <-m.connected:
		return s
	case <-time.After(timeout):
		return nil
	}
}

type mockStream struct {
	frames    chan []byte
	closed    chan struct{}
	failed    chan error
	closeOnce sync.Once
}

func (s *mockStream) ReadFrame() ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.failed:
		return nil, err
	case <-s.closed:
		return nil, errMockClosed
	}
}

func (s *mockStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

func (s *mockStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *mockStream) push(frame string) {
	s.frames <- []byte(frame)
}

func (s *mockStream) keepAlive() {
	s.frames <- nil
}

// drop makes the server side end the stream
func (s *mockStream) drop(err error) {
	s.failed <- err
}

// gatedConn completes Connect only once release is closed, whatever the
// state of the dial context
type gatedConn struct {
	release  chan struct{}
	returned chan *mockStream
}

func newGatedConn() *gatedConn {
	return &gatedConn{release: make(chan struct{}), returned: make(chan *mockStream, 1)}
}

func (g *gatedConn) StreamURL() string {
	return "mock://gated"
}

func (g *gatedConn) Connect(ctx context.Context) (FrameReader, error) {
	<-g.release
	s := &mockStream{
		frames: make(chan []byte, 1),
		failed: make(chan error, 1),
		closed: make(chan struct{}),
	}
	g.returned <- s
	return s, nil
}
