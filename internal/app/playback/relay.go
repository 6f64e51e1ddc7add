// Package playback fans remote audio out to playback sinks.
package playback

import (
	"context"
	"maps"
	"sync"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// ReadFunc returns the next packet of the remote track.
type ReadFunc func() (*rtp.Packet, error)

type Relay struct {
	read ReadFunc

	mu    sync.RWMutex
	sinks map[string]*Sink
}

func NewRelay(read ReadFunc) *Relay {
	return &Relay{
		read:  read,
		sinks: make(map[string]*Sink),
	}
}

// Run reads packets and forwards them to every sink until the source or ctx ends.
// Sinks are closed on return. Packets are drained even without sinks.
func (r *Relay) Run(ctx context.Context, logger *zerolog.Logger) {
	defer r.closeAll()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done")
			return
		default:
		}
		pkt, err := r.read()
		if err != nil {
			logger.Info().Err(err).Msg("relay source ended")
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	snapshot := make(map[string]*Sink, len(r.sinks))
	r.mu.RLock()
	maps.Copy(snapshot, r.sinks)
	r.mu.RUnlock()

	dirty := make([]string, 0, len(snapshot))
	for name, s := range snapshot {
		switch s.GetState() {
		case SinkStateDelete:
			dirty = append(dirty, name)
		case SinkStateMuted:
		case SinkStateOk:
			if err := s.Writer.WriteRTP(pkt); err != nil {
				logger.Error().
					Err(err).
					Str("sink", name).
					Msg("relay write RTP error, marking sink as delete")
				s.MarkDelete()
				dirty = append(dirty, name)
			}
		}
	}

	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []string) {
	r.mu.Lock()
	removed := make([]*Sink, 0, len(dirty))
	for _, name := range dirty {
		if s, ok := r.sinks[name]; ok {
			removed = append(removed, s)
			delete(r.sinks, name)
		}
	}
	r.mu.Unlock()
	for _, s := range removed {
		_ = s.Writer.Close()
	}
}

func (r *Relay) closeAll() {
	r.mu.Lock()
	sinks := r.sinks
	r.sinks = make(map[string]*Sink)
	r.mu.Unlock()
	for _, s := range sinks {
		s.MarkDelete()
		_ = s.Writer.Close()
	}
}

// AddSink registers w under name, replacing and closing a previous sink of that name.
func (r *Relay) AddSink(name string, w Writer) *Sink {
	s := NewSink(w)
	r.mu.Lock()
	old, ok := r.sinks[name]
	r.sinks[name] = s
	r.mu.Unlock()
	if ok {
		old.MarkDelete()
		_ = old.Writer.Close()
	}
	return s
}

func (r *Relay) SinkCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}
