package notify

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatchRecorder struct {
	notifications []*Notification
	serverErrors  []string
}

func newTestDispatcher() (*dispatcher, *dispatchRecorder, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	rec := &dispatchRecorder{}
	d := newDispatcher(log.NewEntry(logger), nil,
		func(n *Notification) { rec.notifications = append(rec.notifications, n) },
		func(msg string) { rec.serverErrors = append(rec.serverErrors, msg) })
	return d, rec, hook
}

func TestDispatchControlFrames(t *testing.T) {
	d, rec, _ := newTestDispatcher()

	assert.Equal(t, dispatchNone, d.dispatch([]byte(`{"type":"heartbeat"}`)))
	assert.Equal(t, dispatchNone, d.dispatch([]byte(`{"type":"connected","clientId":"abc"}`)))
	assert.Equal(t, dispatchShutdown, d.dispatch([]byte(`{"type":"shutdown"}`)))
	assert.Empty(t, rec.notifications)
	assert.Empty(t, rec.serverErrors)
}

func TestDispatchErrorFrame(t *testing.T) {
	d, rec, hook := newTestDispatcher()

	assert.Equal(t, dispatchNone, d.dispatch([]byte(`{"type":"error","message":"token expired"}`)))
	assert.Equal(t, []string{"token expired"}, rec.serverErrors)
	assert.Empty(t, rec.notifications)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, "token expired", entry.Data["message"])
}

func TestDispatchNotifications(t *testing.T) {
	d, rec, _ := newTestDispatcher()

	d.dispatch([]byte(`{"type":"notification","notification":{"id":"a"}}`))
	d.dispatch([]byte(`{"type":"presence","user":"u1"}`))

	require.Len(t, rec.notifications, 2)
	assert.Equal(t, "notification", rec.notifications[0].Type)
	assert.JSONEq(t, `{"id":"a"}`, string(rec.notifications[0].Payload))
	assert.Equal(t, "presence", rec.notifications[1].Type)
	assert.JSONEq(t, `{"type":"presence","user":"u1"}`, string(rec.notifications[1].Payload))
}

func TestDispatchMalformedThrottled(t *testing.T) {
	d, rec, hook := newTestDispatcher()

	for i := 0; i < 20; i++ {
		assert.Equal(t, dispatchNone, d.dispatch([]byte(`not json`)))
	}
	assert.Empty(t, rec.notifications)

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel {
			warnings++
		}
	}
	assert.Len(t, hook.AllEntries(), 20)
	assert.LessOrEqual(t, warnings, 6)
	assert.GreaterOrEqual(t, warnings, 5)
}
