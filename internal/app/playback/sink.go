package playback

import (
	"sync/atomic"

	"github.com/pion/rtp"
)

type SinkState int32

const (
	SinkStateOk SinkState = iota
	SinkStateMuted
	SinkStateDelete
)

// Writer consumes remote RTP, e.g. a speaker process or a recorder.
type Writer interface {
	WriteRTP(*rtp.Packet) error
	Close() error
}

// Sink is one playback destination of a relay.
type Sink struct {
	Writer Writer
	state  atomic.Int32 // Zero by default (SinkStateOk)
}

func NewSink(w Writer) *Sink {
	return &Sink{Writer: w}
}

func (s *Sink) GetState() SinkState {
	return SinkState(s.state.Load())
}

func (s *Sink) MarkOk() {
	s.state.Store(int32(SinkStateOk))
}

func (s *Sink) MarkMuted() {
	s.state.Store(int32(SinkStateMuted))
}

func (s *Sink) MarkDelete() {
	s.state.Store(int32(SinkStateDelete))
}
