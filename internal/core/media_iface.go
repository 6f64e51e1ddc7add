package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// LocalStream is the captured microphone.
type LocalStream interface {
	Tracks() []webrtc.TrackLocal
	Active() bool
	// Stop ends capture on every track. Safe to call more than once.
	Stop()
}

type MediaPipeline interface {
	// Acquire starts microphone capture.
	Acquire(ctx context.Context) (LocalStream, error)
	// Release stops every track of s. Nil and already released streams are fine.
	Release(s LocalStream)
	// Play routes a remote track to the playback sink until the track or ctx ends.
	Play(ctx context.Context, track *webrtc.TrackRemote)
}
