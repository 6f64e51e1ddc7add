package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

type SessionID string

// ConnectionHandlers are bound before negotiation starts so no early event is lost.
// Any of them may be nil.
type ConnectionHandlers struct {
	// OnStateChange receives peer connection states. Failed and disconnected
	// states are delivered off the transport goroutine, so the handler may close the connection.
	OnStateChange func(webrtc.PeerConnectionState)
	// OnMessage receives inbound data channel messages in arrival order.
	OnMessage     func([]byte)
	OnTrack       func(*webrtc.TrackRemote)
	OnChannelOpen func()
}

// RemoteConnection is a negotiated peer connection and its event channel.
type RemoteConnection interface {
	Send(data []byte) error
	ChannelOpen() bool
	// Close closes the data channel and the peer connection. Idempotent.
	Close() error
	IsClosed() bool
}

type Negotiator interface {
	// Negotiate performs one offer/answer round trip. On error nothing it created stays open.
	Negotiate(ctx context.Context, stream LocalStream, cred Credential, h ConnectionHandlers) (RemoteConnection, error)
}
