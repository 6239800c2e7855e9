package notify

import (
	"reflect"
	"sync"

	log "github.com/sirupsen/logrus"
)

type event struct {
	name  string
	value interface{}
}

type eventQueue struct {
	mu     sync.Mutex
	out    chan *event
	data   []*event
	closed bool
}

func newEventQueue() *eventQueue {
	return &eventQueue{out: make(chan *event, 1)}
}

func (e *eventQueue) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.out)
	}
}

// push adds an item to the queue, items pushed after close are dropped
func (e *eventQueue) push(item *event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if len(e.data) == 0 {
		select {
		case e.out <- item:
			return
		default:
		}
	}
	e.data = append(e.data, item)
	e.shift()
}

// shift moves the next available item from the queue into the out channel.
// must be locked by the caller
func (e *eventQueue) shift() {
	if len(e.data) > 0 && !e.closed {
		select {
		case e.out <- e.data[0]:
			e.data[0] = nil
			e.data = e.data[1:]
		default:
		}
	}
}

// pop returns the element and the status of the queue (closed or not)
func (e *eventQueue) pop() (*event, bool) {
	item, ok := <-e.out
	if ok {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.shift()
		return item, false
	}

	return nil, true
}

// EventEmitter listens to a named event and triggers a callback when that event occurs
// The events are emitted as it occurs
type EventEmitter interface {
	On(eventName string, callback interface{}) error
	Off(eventName string, callback interface{}) error
}

type eventEmitter struct {
	eventq    *eventQueue
	wg        sync.WaitGroup
	mu        sync.Mutex
	listeners map[string][]interface{}
}

func newEventEmitter() *eventEmitter {
	return &eventEmitter{
		eventq:    newEventQueue(),
		listeners: make(map[string][]interface{}),
	}
}

// close stops delivery, events still sitting in the backlog are dropped
func (e *eventEmitter) close() {
	e.eventq.close()
	e.wg.Wait()
}

func (e *eventEmitter) on(eventName string, callback interface{}) error {
	if !validListener(eventName, callback) {
		return ErrInvalidListener
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[eventName] = append(e.listeners[eventName], callback)
	return nil
}

// off removes callback. Functions cannot be compared in Go, so listeners
// are matched by their code pointer.
func (e *eventEmitter) off(eventName string, callback interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	listeners := e.listeners[eventName]
	for i, val := range listeners {
		if sameFunc(val, callback) {
			e.listeners[eventName] = append(listeners[:i:i], listeners[i+1:]...)
			return nil
		}
	}
	return nil
}

func (e *eventEmitter) emit(eventName string, value interface{}) {
	e.eventq.push(&event{name: eventName, value: value})
}

func (e *eventEmitter) snapshot(eventName string) []interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]interface{}(nil), e.listeners[eventName]...)
}

func (e *eventEmitter) run() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			item, closed := e.eventq.pop()
			if closed {
				return
			}

			// this could be potentially done using reflect, but for now keep it simple
			// as we don't have too many events and not writing a generic solution
			switch item.name {
			case StateChangedEvent:
				for _, l := range e.snapshot(item.name) {
					if fn, ok := l.(StateChangedEventFn); ok {
						fn(item.value.(StateChange))
					}
				}
			case ReconnectingEvent:
				for _, l := range e.snapshot(item.name) {
					if fn, ok := l.(ReconnectingEventFn); ok {
						fn(item.value.(Reconnecting))
					}
				}
			case ServerErrorEvent:
				for _, l := range e.snapshot(item.name) {
					if fn, ok := l.(ServerErrorEventFn); ok {
						fn(item.value.(string))
					}
				}
			default:
				log.Errorf("Received invalid event, name: %s", item.name)
			}
		}
	}()
}

func validListener(eventName string, callback interface{}) bool {
	switch eventName {
	case StateChangedEvent:
		_, ok := callback.(StateChangedEventFn)
		return ok
	case ReconnectingEvent:
		_, ok := callback.(ReconnectingEventFn)
		return ok
	case ServerErrorEvent:
		_, ok := callback.(ServerErrorEventFn)
		return ok
	}
	return false
}

func sameFunc(a, b interface{}) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != reflect.Func || vb.Kind() != reflect.Func {
		return false
	}
	return va.Pointer() == vb.Pointer()
}
