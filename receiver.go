package notify

import (
	"sync"
)

// NotificationHandler callback that is invoked once for every
// notification received on the stream
type NotificationHandler func(*Notification)

// NotificationReceiver hands notifications from the stream to the
// consumer in arrival order. Sending never blocks the stream, pending
// notifications wait in an unbounded backlog.
type NotificationReceiver struct {
	mu         sync.Mutex
	ch         chan *Notification
	backBuffer []*Notification
	closed     chan struct{}
	closeOnce  sync.Once
}

// NewNotificationReceiver new notification receiver
func NewNotificationReceiver() *NotificationReceiver {
	return &NotificationReceiver{
		ch:     make(chan *Notification, 1),
		closed: make(chan struct{}),
	}
}

// Recv waits for the next notification. Returns ErrClientClosed once
// the receiver has been closed.
func (r *NotificationReceiver) Recv() (*Notification, error) {
	var element *Notification
	select {
	case element = <-r.ch:
	case <-r.closed:
		return nil, ErrClientClosed
	}

	r.mu.Lock()
	r.shift()
	r.mu.Unlock()
	return element, nil
}

// Pending returns the number of notifications not yet received
func (r *NotificationReceiver) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ch) + len(r.backBuffer)
}

func (r *NotificationReceiver) send(n *Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backBuffer = append(r.backBuffer, n)
	r.shift()
}

func (r *NotificationReceiver) close() {
	r.closeOnce.Do(func() {
		close(r.closed)
	})
}

// shift must be called with the lock held
func (r *NotificationReceiver) shift() {
	if len(r.backBuffer) > 0 {
		select {
		case r.ch <- r.backBuffer[0]:
			r.backBuffer[0] = nil
			r.backBuffer = r.backBuffer[1:]
		default:
		}
	}
}

type notificationDispatcher struct {
	recvr   *NotificationReceiver
	mu      sync.Mutex
	handler NotificationHandler
}

func (d *notificationDispatcher) setHandler(h NotificationHandler) {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
}

func (d *notificationDispatcher) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		n, err := d.recvr.Recv()
		if err != nil {
			return
		}
		d.mu.Lock()
		h := d.handler
		d.mu.Unlock()
		if h != nil {
			h(n)
		}
	}
}
