package notify

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

type commandKind int

const (
	cmdConnect commandKind = iota
	cmdDisconnect
	cmdReconnect
	cmdNetwork
	cmdForeground
	cmdClose
)

type command struct {
	kind  commandKind
	value bool
	reply chan struct{}
}

type streamOpened struct {
	gen    uint64
	reader FrameReader
}

type streamOpenFailed struct {
	gen uint64
	err error
}

type frameReceived struct {
	gen  uint64
	data []byte
}

type streamFailed struct {
	gen uint64
	err error
}

type heartbeatExpired struct {
	gen uint64
}

type reconnectTimerFired struct {
	gen uint64
}

// manager is the connection state machine. It runs on its own goroutine
// and is the only owner of the stream, the timers and the state structs;
// everything else reaches it through Client.inbox.
type manager struct {
	c      *Client
	conn   Connection
	opts   clientOptions
	logger *log.Entry

	cs         connectionState
	backoff    *backoffScheduler
	heartbeat  *heartbeatMonitor
	dispatcher *dispatcher

	manuallyClosed bool
	started        bool
	online         bool
	paused         bool

	stream     FrameReader
	streamGen  uint64
	openCancel context.CancelFunc

	reconnectTimer *time.Timer
	timerGen       uint64

	published State
	cause     error
}

func newManager(c *Client) *manager {
	m := &manager{
		c:      c,
		conn:   c.conn,
		opts:   c.options,
		logger: c.logger,
		online: true,
	}
	m.backoff = newBackoffScheduler(m.opts.initialReconnectDelay, m.opts.maxReconnectDelay, m.opts.jitter)
	m.heartbeat = newHeartbeatMonitor(m.opts.heartbeatTimeout, func(gen uint64) {
		c.post(&heartbeatExpired{gen: gen})
	})
	m.dispatcher = newDispatcher(c.logger, c.metrics, c.deliver, func(msg string) {
		c.emitter.emit(ServerErrorEvent, msg)
	})
	m.published = m.cs.snapshot()
	return m
}

func (m *manager) run() {
	defer m.drain()
	for msg := range m.c.inbox {
		stop := m.handle(msg)
		m.publish()
		if cmd, ok := msg.(*command); ok {
			close(cmd.reply)
		}
		if stop {
			return
		}
	}
}

// drain marks the client closed and releases streams whose open raced
// with Close
func (m *manager) drain() {
	close(m.c.done)

	// posts blocked on a full inbox return once done is closed, after
	// the write lock no post is in flight and later ones are refused
	m.c.inboxMu.Lock()
	m.c.inboxClosed = true
	m.c.inboxMu.Unlock()

	for {
		select {
		case msg := <-m.c.inbox:
			if opened, ok := msg.(*streamOpened); ok {
				opened.reader.Close()
			}
		default:
			return
		}
	}
}

func (m *manager) handle(msg interface{}) bool {
	switch msg := msg.(type) {
	case *command:
		return m.handleCommand(msg)
	case *streamOpened:
		m.onOpened(msg)
	case *streamOpenFailed:
		if msg.gen == m.streamGen && m.cs.status == StatusConnecting {
			m.fail(newStreamError(FailureTransport, msg.err))
		}
	case *frameReceived:
		m.onFrame(msg)
	case *streamFailed:
		if msg.gen == m.streamGen && m.cs.status == StatusConnected {
			m.fail(newStreamError(FailureTransport, msg.err))
		}
	case *heartbeatExpired:
		if m.heartbeat.isCurrent(msg.gen) && m.cs.status == StatusConnected {
			m.logger.Warnf("No frame received for %v, closing stale stream", m.opts.heartbeatTimeout)
			m.fail(newStreamError(FailureStale, ErrStale))
		}
	case *reconnectTimerFired:
		if msg.gen == m.timerGen && m.reconnectTimer != nil {
			m.reconnectTimer = nil
			m.connect()
		}
	}
	return false
}

func (m *manager) handleCommand(cmd *command) bool {
	switch cmd.kind {
	case cmdConnect:
		m.manuallyClosed = false
		m.started = true
		m.connect()
	case cmdDisconnect:
		m.disconnect()
	case cmdReconnect:
		m.disconnect()
		m.manuallyClosed = false
		m.started = true
		m.armTimer(m.opts.manualReconnectDelay)
		m.logger.Infof("Reconnecting in %v", m.opts.manualReconnectDelay)
	case cmdNetwork:
		if cmd.value {
			m.networkRestored()
		} else {
			m.networkLost()
		}
	case cmdForeground:
		if cmd.value {
			m.wake("foreground restored")
		}
	case cmdClose:
		m.disconnect()
		return true
	}
	return false
}

// connect starts one connection attempt
func (m *manager) connect() {
	if m.cs.status == StatusConnected || m.cs.status == StatusConnecting {
		return
	}
	m.stopTimer()
	m.closeStream()

	m.cs.attemptCount++
	m.c.metrics.attempt()

	if !m.online {
		m.logger.Info("Network is unreachable, postponing connection attempt")
		m.cs.lastError = ErrOffline.Error()
		m.cause = newStreamError(FailureOffline, ErrOffline)
		m.scheduleReconnect(m.cause)
		return
	}

	m.cs.status = StatusConnecting
	m.streamGen++
	gen := m.streamGen
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.connectionTimeout)
	m.openCancel = cancel

	m.logger.WithField("attempt", m.cs.attemptCount).Infof("Opening stream %s", m.conn.StreamURL())
	go func() {
		reader, err := m.conn.Connect(ctx)
		cancel()
		if err != nil {
			m.c.post(&streamOpenFailed{gen: gen, err: err})
			return
		}
		if !m.c.post(&streamOpened{gen: gen, reader: reader}) {
			reader.Close()
		}
	}()
}

func (m *manager) onOpened(msg *streamOpened) {
	if msg.gen != m.streamGen || m.cs.status != StatusConnecting {
		// superseded by a disconnect or a newer attempt
		msg.reader.Close()
		return
	}
	m.openCancel = nil
	m.stream = msg.reader
	m.cs.status = StatusConnected
	m.cs.lastError = ""
	m.cs.attemptCount = 0
	m.backoff.Reset()
	m.heartbeat.reset()
	m.c.metrics.opened()
	m.logger.Info("Stream is connected")

	go m.readFrames(msg.gen, msg.reader)
}

// readFrames pumps frames of one stream into the inbox until the stream fails
func (m *manager) readFrames(gen uint64, reader FrameReader) {
	for {
		data, err := reader.ReadFrame()
		if err != nil {
			m.c.post(&streamFailed{gen: gen, err: err})
			return
		}
		if !m.c.post(&frameReceived{gen: gen, data: data}) {
			return
		}
	}
}

func (m *manager) onFrame(msg *frameReceived) {
	if msg.gen != m.streamGen || m.cs.status != StatusConnected {
		return
	}

	result := dispatchNone
	if msg.data == nil {
		m.c.metrics.frameReceived("keepalive")
	} else {
		result = m.dispatcher.dispatch(msg.data)
	}
	m.heartbeat.reset()

	if result == dispatchShutdown && !m.manuallyClosed {
		m.fail(newStreamError(FailureShutdown, ErrShutdown))
	}
}

// fail moves to Disconnected and, unless the consumer closed the client
// or the network is down, schedules the next attempt
func (m *manager) fail(err *StreamError) {
	m.closeStream()
	m.cs.status = StatusDisconnected
	m.cs.lastError = err.Error()
	m.cause = err
	m.c.metrics.failed(err.Kind)
	m.logger.WithError(err).Warn("Stream is disconnected")

	if m.manuallyClosed || m.paused {
		return
	}
	m.scheduleReconnect(err)
}

func (m *manager) scheduleReconnect(cause error) {
	delay := m.backoff.Next()
	m.armTimer(delay)
	m.c.metrics.reconnectScheduled()
	m.logger.WithField("attempt", m.cs.attemptCount+1).Infof("Reconnecting in %v", delay)
	m.c.emitter.emit(ReconnectingEvent, Reconnecting{
		Attempt: m.cs.attemptCount + 1,
		Delay:   delay,
		Err:     cause,
	})
}

func (m *manager) disconnect() {
	m.manuallyClosed = true
	m.stopTimer()
	m.closeStream()
	if m.cs.status != StatusDisconnected {
		m.cs.status = StatusDisconnected
		m.logger.Info("Stream is disconnected by the client")
	}
}

// networkLost pauses the client without marking it manually closed
func (m *manager) networkLost() {
	m.online = false
	if m.manuallyClosed || !m.started {
		return
	}
	m.paused = true
	m.stopTimer()
	m.closeStream()
	if m.cs.status != StatusDisconnected {
		m.cs.status = StatusDisconnected
		m.cause = newStreamError(FailureOffline, ErrOffline)
	}
	m.logger.Info("Network is unreachable, stream paused")
}

func (m *manager) networkRestored() {
	m.online = true
	m.paused = false
	m.wake("network restored")
}

// wake connects after an environment change if the consumer wants a stream
func (m *manager) wake(reason string) {
	if m.manuallyClosed || !m.started || !m.online {
		return
	}
	if m.cs.status == StatusConnected || m.cs.status == StatusConnecting {
		return
	}
	m.logger.Infof("Connecting, %s", reason)
	m.connect()
}

// armTimer replaces any pending reconnect with one that fires after delay
func (m *manager) armTimer(delay time.Duration) {
	m.stopTimer()
	m.timerGen++
	gen := m.timerGen
	m.reconnectTimer = time.AfterFunc(delay, func() {
		m.c.post(&reconnectTimerFired{gen: gen})
	})
}

func (m *manager) stopTimer() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.timerGen++
}

// closeStream closes the open stream or abandons the attempt in flight
func (m *manager) closeStream() {
	m.heartbeat.disarm()
	m.streamGen++
	if m.openCancel != nil {
		m.openCancel()
		m.openCancel = nil
	}
	if m.stream != nil {
		if err := m.stream.Close(); err != nil {
			m.logger.Debugf("Closing stream returned %v", err)
		}
		m.stream = nil
		m.c.metrics.closed()
	}
}

// publish exposes the state to State() and emits a change event when it moved
func (m *manager) publish() {
	s := m.cs.snapshot()
	cause := m.cause
	m.cause = nil
	if s == m.published {
		return
	}
	old := m.published
	m.published = s
	m.c.publish(s)
	m.c.emitter.emit(StateChangedEvent, StateChange{Old: old, New: s, Err: cause})
}
