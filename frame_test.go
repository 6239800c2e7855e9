package notify

import (
	"testing"

	"github.com/srishina/notify.go/internal/frametype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		typ     frametype.FrameType
		message string
		payload string
	}{
		{name: "nested payload", raw: `{"type":"notification","notification":{"id":"1"}}`, typ: frametype.NOTIFICATION, payload: `{"id":"1"}`},
		{name: "flat payload", raw: `{"type":"badge","count":2}`, typ: "badge", payload: `{"type":"badge","count":2}`},
		{name: "heartbeat", raw: `{"type":"heartbeat","ts":1}`, typ: frametype.HEARTBEAT, payload: `{"type":"heartbeat","ts":1}`},
		{name: "error message", raw: `{"type":"error","message":"denied"}`, typ: frametype.ERROR, message: "denied", payload: `{"type":"error","message":"denied"}`},
		{name: "error field", raw: `{"type":"error","error":"quota"}`, typ: frametype.ERROR, message: "quota", payload: `{"type":"error","error":"quota"}`},
		{name: "error object", raw: `{"type":"error","error":{"code":7}}`, typ: frametype.ERROR, message: `{"code":7}`, payload: `{"type":"error","error":{"code":7}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFrame([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.typ, f.Type)
			assert.Equal(t, tt.message, f.Message)
			assert.JSONEq(t, tt.payload, string(f.Payload))
		})
	}
}

func TestParseMalformedFrame(t *testing.T) {
	for _, raw := range []string{``, `garbage`, `{`, `null`, `[]`, `"notification"`, `42`, `{}`, `{"type":""}`, `{"type":null}`, `{"type":{"a":1}}`} {
		_, err := parseFrame([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedFrame, "frame %q", raw)
	}
}

func TestNotificationDecode(t *testing.T) {
	n := &Notification{Type: "notification", Payload: []byte(`{"id":"n1","tags":["a","b"]}`)}
	var body struct {
		ID   string   `json:"id"`
		Tags []string `json:"tags"`
	}
	require.NoError(t, n.Decode(&body))
	assert.Equal(t, "n1", body.ID)
	assert.Equal(t, []string{"a", "b"}, body.Tags)
}
