package frametype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameTypeText(t *testing.T) {
	assert.Equal(t, "HEARTBEAT", HEARTBEAT.Text())
	assert.Equal(t, "SHUTDOWN", SHUTDOWN.Text())
	assert.Equal(t, "", FrameType("invoice.approved").Text())
}

func TestFrameTypeIsControl(t *testing.T) {
	for _, ft := range []FrameType{HEARTBEAT, CONNECTED, ERROR, SHUTDOWN} {
		assert.True(t, ft.IsControl(), "%s must be a control frame", ft)
	}
	assert.False(t, NOTIFICATION.IsControl())
	assert.False(t, FrameType("payment").IsControl())
}
