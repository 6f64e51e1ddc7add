package orch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/dkeye/VoiceTwin/internal/domain"
	"github.com/dkeye/VoiceTwin/internal/transcript"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

const inboxSize = 256

func (m *SessionManager) handlers(ctx context.Context, gen uint64, inbox chan<- []byte) core.ConnectionHandlers {
	return core.ConnectionHandlers{
		OnStateChange: func(s webrtc.PeerConnectionState) {
			switch s {
			case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
				m.connectionLost(gen, s.String())
			}
		},
		OnMessage: func(data []byte) {
			select {
			case inbox <- bytes.Clone(data):
			case <-ctx.Done():
			}
		},
		OnTrack: func(track *webrtc.TrackRemote) {
			m.onTrack(ctx, gen, track)
		},
		OnChannelOpen: func() {
			zerolog.Ctx(ctx).Info().Msg("event channel open")
		},
	}
}

// dispatch applies inbound events of attempt gen one at a time in arrival order.
func (m *SessionManager) dispatch(ctx context.Context, gen uint64, inbox <-chan []byte) {
	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-inbox:
			m.handleMessage(logger, gen, data)
		}
	}
}

func (m *SessionManager) handleMessage(logger *zerolog.Logger, gen uint64, data []byte) {
	ev, err := transcript.Decode(data)
	if errors.Is(err, transcript.ErrUnknownEvent) {
		return
	}
	if err != nil {
		logger.Warn().Err(err).Msg("dropping malformed event")
		return
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	next, out := m.reducer.Reduce(m.tstate, ev)
	m.tstate = next
	if out.Err != "" {
		m.lastErr = out.Err
	}
	m.mu.Unlock()

	if out.Diverged {
		logger.Debug().Str("transcript", ev.Text).Msg("done transcript differs from streamed deltas")
	}
	if out.Err != "" {
		logger.Warn().Msg("realtime service reported an error")
		logger.Debug().Str("error", out.Err).Msg("service error detail")
	}
	m.publish()
}

// Send writes a client event to the open event channel of the live session.
func (m *SessionManager) Send(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	m.mu.Lock()
	conn := m.res.conn
	live := m.status == domain.StatusLive
	m.mu.Unlock()
	if !live || conn == nil {
		return ErrNotLive
	}
	if !conn.ChannelOpen() {
		return ErrChannelClosed
	}
	if err := conn.Send(data); err != nil {
		return domain.NewTransportError("", err)
	}
	return nil
}
