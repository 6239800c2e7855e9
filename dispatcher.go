package notify

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/srishina/notify.go/internal/frametype"
	"golang.org/x/time/rate"
)

type dispatchResult int

const (
	dispatchNone dispatchResult = iota
	dispatchShutdown
)

// dispatcher parses stream frames and routes them. Control frames are
// consumed here, everything else is handed to deliver. The caller resets
// the heartbeat for every frame whatever the result, a malformed frame
// still proves the stream is alive.
type dispatcher struct {
	deliver     func(*Notification)
	serverError func(message string)
	logger      *log.Entry
	limiter     *rate.Limiter
	metrics     *metrics
}

func newDispatcher(logger *log.Entry, m *metrics, deliver func(*Notification), serverError func(string)) *dispatcher {
	return &dispatcher{
		deliver:     deliver,
		serverError: serverError,
		logger:      logger,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 5),
		metrics:     m,
	}
}

func (d *dispatcher) dispatch(raw []byte) dispatchResult {
	f, err := parseFrame(raw)
	if err != nil {
		d.metrics.frameReceived("malformed")
		d.metrics.failed(FailureParse)
		d.warn(log.Fields{"error": err, "size": len(raw)}, "Discarding malformed frame")
		return dispatchNone
	}
	d.metrics.frameReceived(string(f.Type))

	if !f.Type.IsControl() {
		if d.deliver != nil {
			d.deliver(&Notification{Type: string(f.Type), Payload: f.Payload, ReceivedAt: time.Now()})
		}
		return dispatchNone
	}

	switch f.Type {
	case frametype.HEARTBEAT, frametype.CONNECTED:
		d.logger.Debugf("Received %s frame", f.Type)
	case frametype.ERROR:
		d.metrics.failed(FailureApplication)
		d.warn(log.Fields{"message": f.Message}, "Server reported an error on the stream")
		if d.serverError != nil {
			d.serverError(f.Message)
		}
	case frametype.SHUTDOWN:
		d.logger.Info("Server requested shutdown of the stream")
		return dispatchShutdown
	}
	return dispatchNone
}

// warn logs at warning level unless the server is flooding us, in which
// case the entry is demoted to debug
func (d *dispatcher) warn(fields log.Fields, msg string) {
	entry := d.logger.WithFields(fields)
	if d.limiter.Allow() {
		entry.Warn(msg)
		return
	}
	entry.Debug(msg)
}
