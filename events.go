package notify

import "time"

const (
	StateChangedEvent = "statechanged"
	ReconnectingEvent = "reconnecting"
	ServerErrorEvent  = "servererror"
)

// StateChange describes a transition of the connection state machine.
// Err is set when the transition was caused by a failure.
type StateChange struct {
	Old State
	New State
	Err error
}

// Reconnecting is emitted whenever a reconnect timer is armed
type Reconnecting struct {
	Attempt int
	Delay   time.Duration
	Err     error
}

type StateChangedEventFn = func(change StateChange)
type ReconnectingEventFn = func(r Reconnecting)
type ServerErrorEventFn = func(message string)
