// Package framer splits the inbound cloud data stream into JSON frames.
package framer

import (
	"bytes"

	"github.com/tidwall/gjson"

	"github.com/nexensys/scratch3-api/internal/metrics"
	"github.com/nexensys/scratch3-api/internal/protocol"
	"github.com/nexensys/scratch3-api/util"
)

// Mode selects how chunk boundaries relate to frame boundaries.
type Mode int

const (
	// Buffered treats the messages as one byte stream.  A frame may be
	// split across messages and is only parsed once its delimiter
	// arrives.
	Buffered Mode = iota
	// PerMessage parses every line of each message on its own.  Nothing
	// carries over to the next message.
	PerMessage
)

func (m Mode) String() string {
	switch m {
	case Buffered:
		return "buffered"
	case PerMessage:
		return "per-message"
	default:
		return "unknown"
	}
}

// Framer turns inbound chunks into frames.  It is not safe for
// concurrent use; one session's read loop owns it.
type Framer struct {
	mode    Mode
	buf     []byte
	logger  *util.Logger
	metrics *metrics.Collector
}

// New returns a Framer for mode.  logger and m may be nil.
func New(mode Mode, logger *util.Logger, m *metrics.Collector) *Framer {
	return &Framer{mode: mode, logger: logger, metrics: m}
}

// Mode returns the framing mode.
func (f *Framer) Mode() Mode { return f.mode }

// Buffered returns the number of bytes held back as a partial frame.
func (f *Framer) Buffered() int { return len(f.buf) }

// Reset drops any partial frame.  Call it when the connection is
// replaced so a fragment of the old stream cannot prefix the new one.
func (f *Framer) Reset() { f.buf = f.buf[:0] }

// Push consumes one inbound chunk and returns the frames it completed,
// in arrival order.  Malformed segments are logged, counted and skipped.
func (f *Framer) Push(chunk []byte) []protocol.Frame {
	var frames []protocol.Frame

	data := chunk
	if f.mode == Buffered {
		f.buf = append(f.buf, chunk...)
		data = f.buf
	}

	for {
		i := bytes.IndexByte(data, protocol.Delimiter)
		if i < 0 {
			break
		}
		if fr, ok := f.parse(data[:i]); ok {
			frames = append(frames, fr)
		}
		data = data[i+1:]
	}

	if f.mode == Buffered {
		// Keep the partial tail at the front of buf.
		f.buf = append(f.buf[:0], data...)
	} else if fr, ok := f.parse(data); ok {
		frames = append(frames, fr)
	}
	return frames
}

func (f *Framer) parse(seg []byte) (protocol.Frame, bool) {
	seg = bytes.TrimSpace(seg)
	if len(seg) == 0 {
		return protocol.Frame{}, false
	}
	if !gjson.ValidBytes(seg) || !gjson.ParseBytes(seg).IsObject() {
		f.metrics.MalformedFrame()
		f.logger.Warn("dropping invalid frame (%d bytes): %.120s", len(seg), seg)
		return protocol.Frame{}, false
	}

	raw := make([]byte, len(seg))
	copy(raw, seg)
	res := gjson.GetManyBytes(raw, protocol.FieldMethod, protocol.FieldName, protocol.FieldValue)
	fr := protocol.Frame{
		Method: res[0].String(),
		Name:   res[1].String(),
		Value:  protocol.ValueText(res[2]),
		Raw:    raw,
	}
	f.metrics.FrameReceived(len(raw))
	return fr, true
}
