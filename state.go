package notify

// Status of the notification stream
type Status int

const (
	// StatusDisconnected no stream is open, a reconnect may be pending
	StatusDisconnected Status = iota
	// StatusConnecting a stream is being opened
	StatusConnecting
	// StatusConnected the stream is open and frames are flowing
	StatusConnected
)

var statusText = map[Status]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusConnected:    "connected",
}

func (s Status) String() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return "unknown"
}

// State is a read-only snapshot of the connection state. Error is empty
// when no failure has been recorded since the last successful open.
type State struct {
	Status     Status `json:"-"`
	Connected  bool   `json:"connected"`
	Connecting bool   `json:"connecting"`
	Error      string `json:"error"`
	RetryCount int    `json:"retryCount"`
}

// MarshalJSON writes an empty Error as null
func (s State) MarshalJSON() ([]byte, error) {
	var errText *string
	if s.Error != "" {
		errText = &s.Error
	}
	return frameCodec.Marshal(struct {
		Connected  bool    `json:"connected"`
		Connecting bool    `json:"connecting"`
		Error      *string `json:"error"`
		RetryCount int     `json:"retryCount"`
	}{s.Connected, s.Connecting, errText, s.RetryCount})
}

// connectionState is owned by the client goroutine
type connectionState struct {
	status       Status
	lastError    string
	attemptCount int
}

func (cs *connectionState) snapshot() State {
	return State{
		Status:     cs.status,
		Connected:  cs.status == StatusConnected,
		Connecting: cs.status == StatusConnecting,
		Error:      cs.lastError,
		RetryCount: cs.attemptCount,
	}
}
