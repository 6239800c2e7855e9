package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// clientOptions contains configurable settings for a client
type clientOptions struct {
	connectionTimeout     time.Duration
	initialReconnectDelay time.Duration
	maxReconnectDelay     time.Duration
	heartbeatTimeout      time.Duration
	manualReconnectDelay  time.Duration
	logger                *log.Entry
	registerer            prometheus.Registerer
	receiver              *NotificationReceiver
	jitter                jitterSource
}

var defaultClientOptions = clientOptions{
	connectionTimeout:     15 * time.Second,
	initialReconnectDelay: defaultInitialReconnectDelay,
	maxReconnectDelay:     defaultMaxReconnectDelay,
	heartbeatTimeout:      defaultHeartbeatTimeout,
	manualReconnectDelay:  100 * time.Millisecond,
}

// ClientOption ...
type ClientOption func(*clientOptions) error

// WithConnectionTimeout bounds the time a single attempt may take to open the stream
func WithConnectionTimeout(timeout time.Duration) ClientOption {
	return func(c *clientOptions) error {
		c.connectionTimeout = timeout
		return nil
	}
}

// WithInitialReconnectDelay base delay of the first reconnect after a failure
func WithInitialReconnectDelay(delay time.Duration) ClientOption {
	return func(c *clientOptions) error {
		c.initialReconnectDelay = delay
		return nil
	}
}

// WithMaxReconnectDelay the reconnect base delay never grows beyond this value
func WithMaxReconnectDelay(delay time.Duration) ClientOption {
	return func(c *clientOptions) error {
		c.maxReconnectDelay = delay
		return nil
	}
}

// WithHeartbeatTimeout the stream is declared stale when no frame arrives within timeout
func WithHeartbeatTimeout(timeout time.Duration) ClientOption {
	return func(c *clientOptions) error {
		c.heartbeatTimeout = timeout
		return nil
	}
}

// WithManualReconnectDelay delay between the disconnect and the connect of Reconnect
func WithManualReconnectDelay(delay time.Duration) ClientOption {
	return func(c *clientOptions) error {
		c.manualReconnectDelay = delay
		return nil
	}
}

// WithLogger logs through the given entry instead of the standard logger
func WithLogger(entry *log.Entry) ClientOption {
	return func(c *clientOptions) error {
		c.logger = entry
		return nil
	}
}

// WithMetrics registers the client collectors with reg
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *clientOptions) error {
		c.registerer = reg
		return nil
	}
}

// WithNotificationReceiver every notification is also sent to recvr, the
// consumer pulls them with NotificationReceiver.Recv
func WithNotificationReceiver(recvr *NotificationReceiver) ClientOption {
	return func(c *clientOptions) error {
		c.receiver = recvr
		return nil
	}
}

func withJitter(j jitterSource) ClientOption {
	return func(c *clientOptions) error {
		c.jitter = j
		return nil
	}
}

var _ EventEmitter = (*Client)(nil)

// Client keeps a notification stream open for as long as the consumer
// wants it, reconnecting with backoff after every failure. All connection
// state lives in a single goroutine, the exported methods talk to it
// through messages and are safe for concurrent use.
type Client struct {
	conn    Connection
	options clientOptions
	id      string
	logger  *log.Entry
	metrics *metrics

	inbox     chan interface{}
	done      chan struct{}
	closeOnce sync.Once

	// inboxMu guards inboxClosed, posts hold it for reading
	inboxMu     sync.RWMutex
	inboxClosed bool

	stateMu sync.RWMutex
	state   State

	emitter       *eventEmitter
	notifications *notificationDispatcher
	wg            sync.WaitGroup
}

// NewClient creates a new client for the stream behind conn. The client
// starts disconnected, call Connect to open the stream.
func NewClient(conn Connection, opt ...ClientOption) *Client {
	opts := defaultClientOptions

	for _, o := range opt {
		o(&opts)
	}

	id := uuid.NewString()
	if hc, ok := conn.(*HTTPStreamConn); ok && hc.ClientID == "" {
		hc.ClientID = id
	}

	logger := opts.logger
	if logger == nil {
		logger = log.WithField("component", "notify")
	}
	logger = logger.WithField("client", id)

	c := &Client{
		conn:    conn,
		options: opts,
		id:      id,
		logger:  logger,
		inbox:   make(chan interface{}, 64),
		done:    make(chan struct{}),
		emitter: newEventEmitter(),
		notifications: &notificationDispatcher{
			recvr: NewNotificationReceiver(),
		},
	}

	if opts.registerer != nil {
		m, err := newMetrics(opts.registerer)
		if err != nil {
			logger.Warnf("Metrics are disabled, registering collectors failed: %v", err)
		}
		c.metrics = m
	}

	c.emitter.run()
	c.wg.Add(1)
	go c.notifications.run(&c.wg)

	m := newManager(c)
	c.state = m.cs.snapshot()
	go m.run()

	return c
}

// ID returns the identifier the client presents to the server
func (c *Client) ID() string {
	return c.id
}

// OnNotification registers the callback invoked for every notification.
// Callbacks run one at a time in arrival order on a dedicated goroutine,
// they may call back into the client.
func (c *Client) OnNotification(h NotificationHandler) {
	c.notifications.setHandler(h)
}

// On registers a listener for StateChangedEvent, ReconnectingEvent or
// ServerErrorEvent, callback must have the matching signature
func (c *Client) On(eventName string, callback interface{}) error {
	return c.emitter.on(eventName, callback)
}

// Off removes a listener registered with On
func (c *Client) Off(eventName string, callback interface{}) error {
	return c.emitter.off(eventName, callback)
}

// State returns a snapshot of the connection state
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Connect opens the stream unless it is already open or opening. It
// clears a previous Disconnect and returns without waiting for the stream,
// failures are reported through State and retried in the background.
func (c *Client) Connect() error {
	return c.call(cmdConnect, false)
}

// Disconnect closes the stream and stops every reconnect until the next
// Connect or Reconnect. When it returns no timer of the client is pending.
func (c *Client) Disconnect() error {
	return c.call(cmdDisconnect, false)
}

// Reconnect closes the stream and opens a new one after a short fixed delay
func (c *Client) Reconnect() error {
	return c.call(cmdReconnect, false)
}

// Close disconnects and releases the client, it cannot be used afterwards
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		_ = c.call(cmdClose, false)
		<-c.done
		c.notifications.recvr.close()
		if c.options.receiver != nil {
			c.options.receiver.close()
		}
		c.wg.Wait()
		c.emitter.close()
	})
	return nil
}

func (c *Client) networkChanged(online bool) error {
	return c.call(cmdNetwork, online)
}

func (c *Client) foregroundChanged(visible bool) error {
	return c.call(cmdForeground, visible)
}

func (c *Client) call(kind commandKind, value bool) error {
	cmd := &command{kind: kind, value: value, reply: make(chan struct{})}
	if !c.post(cmd) {
		return ErrClientClosed
	}
	select {
	case <-cmd.reply:
		return nil
	case <-c.done:
		select {
		case <-cmd.reply:
			return nil
		default:
			return ErrClientClosed
		}
	}
}

// post hands msg to the client goroutine, false once the client is closed.
// A message accepted by post is either handled or released by drain.
func (c *Client) post(msg interface{}) bool {
	c.inboxMu.RLock()
	defer c.inboxMu.RUnlock()
	if c.inboxClosed {
		return false
	}
	select {
	case c.inbox <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) publish(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

func (c *Client) deliver(n *Notification) {
	c.notifications.recvr.send(n)
	if c.options.receiver != nil {
		c.options.receiver.send(n)
	}
}
