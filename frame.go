package notify

import (
	"encoding/json"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/srishina/notify.go/internal/frametype"
)

var frameCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Notification is a domain payload received on the stream. Payload holds
// the value stored under the key named by Type (for example the
// "notification" object of a notification frame) or the complete frame
// when the server did not nest it.
type Notification struct {
	Type       string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Decode unmarshals the payload into v
func (n *Notification) Decode(v interface{}) error {
	return frameCodec.Unmarshal(n.Payload, v)
}

// frame is the decoded envelope of one stream message
type frame struct {
	Type    frametype.FrameType
	Message string
	Payload json.RawMessage
}

func parseFrame(raw []byte) (*frame, error) {
	var fields map[string]json.RawMessage
	if err := frameCodec.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: frame is not an object", ErrMalformedFrame)
	}

	typeRaw, ok := fields["type"]
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	var typ string
	if err := frameCodec.Unmarshal(typeRaw, &typ); err != nil || typ == "" {
		return nil, fmt.Errorf("%w: type must be a non-empty string", ErrMalformedFrame)
	}

	f := &frame{Type: frametype.FrameType(typ)}
	if f.Type == frametype.ERROR {
		f.Message = firstString(fields, "message", "error")
	}
	if payload, ok := fields[typ]; ok {
		f.Payload = payload
	} else {
		f.Payload = json.RawMessage(raw)
	}
	return f, nil
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if err := frameCodec.Unmarshal(raw, &s); err == nil {
			return s
		}
		// not a string, keep the raw JSON for diagnostics
		return string(raw)
	}
	return ""
}
