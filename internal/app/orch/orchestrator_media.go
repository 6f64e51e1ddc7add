package orch

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// onTrack routes remote audio of attempt gen to playback until the session ends.
func (m *SessionManager) onTrack(ctx context.Context, gen uint64, track *webrtc.TrackRemote) {
	m.mu.Lock()
	current := m.gen == gen
	m.mu.Unlock()
	if !current {
		return
	}
	zerolog.Ctx(ctx).Info().Msg("remote audio routed to playback")
	go m.Media.Play(ctx, track)
}
