package streamutil

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const defaultMaxLineSize = 1 << 20

var (
	ErrLineTooLong = errors.New("event stream line exceeds the maximum size")
)

// EventReader splits a text/event-stream body into frames. Bodies that
// carry newline delimited JSON instead of SSE fields are accepted too,
// one object per line.
type EventReader struct {
	r           *bufio.Reader
	data        bytes.Buffer
	hasData     bool
	lastEventID string
	maxLineSize int
}

func NewEventReader(r io.Reader) *EventReader {
	return NewEventReaderSize(r, defaultMaxLineSize)
}

func NewEventReaderSize(r io.Reader, maxLineSize int) *EventReader {
	if maxLineSize <= 0 {
		maxLineSize = defaultMaxLineSize
	}
	return &EventReader{r: bufio.NewReaderSize(r, 4096), maxLineSize: maxLineSize}
}

// LastEventID returns the value of the last "id" field seen on the stream
func (e *EventReader) LastEventID() string {
	return e.lastEventID
}

// Next returns the next frame. A nil frame together with a nil error
// means a comment line was read, servers use those as keep-alives.
// io.EOF is returned once the body is exhausted.
func (e *EventReader) Next() ([]byte, error) {
	for {
		line, err := e.readLine()
		if err != nil {
			if err == io.EOF && e.hasData {
				return e.flush(), nil
			}
			return nil, err
		}

		if len(line) == 0 {
			if e.hasData {
				return e.flush(), nil
			}
			continue
		}

		if line[0] == ':' {
			return nil, nil
		}

		if !e.hasData && (line[0] == '{' || line[0] == '[') {
			return clone(line), nil
		}

		field, value := splitField(line)
		switch string(field) {
		case "data":
			if e.hasData {
				e.data.WriteByte('\n')
			}
			e.data.Write(value)
			e.hasData = true
		case "id":
			if bytes.IndexByte(value, 0) < 0 {
				e.lastEventID = string(value)
			}
		case "event", "retry":
			// the frame type travels inside the JSON body and the retry
			// interval is owned by the client backoff
		default:
			if !e.hasData {
				return clone(line), nil
			}
		}
	}
}

func (e *EventReader) flush() []byte {
	frame := clone(e.data.Bytes())
	e.data.Reset()
	e.hasData = false
	return frame
}

// readLine reads up to the next LF and strips the line terminator.
func (e *EventReader) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := e.r.ReadSlice('\n')
		if len(line)+len(chunk) > e.maxLineSize {
			return nil, ErrLineTooLong
		}
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return trimEOL(line), nil
			}
			return nil, err
		}
		return trimEOL(line), nil
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

func splitField(line []byte) ([]byte, []byte) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return line, nil
	}
	value := line[idx+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return line[:idx], value
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
