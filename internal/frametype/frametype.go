package frametype

// FrameType is the value of the "type" discriminator carried by every
// frame on the notification stream.
type FrameType string

// Control and domain frame types
const (
	HEARTBEAT    FrameType = "heartbeat"
	CONNECTED    FrameType = "connected"
	ERROR        FrameType = "error"
	SHUTDOWN     FrameType = "shutdown"
	NOTIFICATION FrameType = "notification"
)

var frameTypeText = map[FrameType]string{
	HEARTBEAT:    "HEARTBEAT",
	CONNECTED:    "CONNECTED",
	ERROR:        "ERROR",
	SHUTDOWN:     "SHUTDOWN",
	NOTIFICATION: "NOTIFICATION",
}

// Text returns a text for the frame type. Returns the empty
// string if the frame type is not one the client knows about.
func (ft FrameType) Text() string {
	return frameTypeText[ft]
}

// IsControl reports whether frames of this type are consumed by
// the client itself and never handed to the consumer.
func (ft FrameType) IsControl() bool {
	switch ft {
	case HEARTBEAT, CONNECTED, ERROR, SHUTDOWN:
		return true
	}
	return false
}
