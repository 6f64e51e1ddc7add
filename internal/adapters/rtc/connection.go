package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

var ErrChannelNotOpen = errors.New("data channel not open")

// Connection owns one PeerConnection and its event data channel.
// It implements core.RemoteConnection.
type Connection struct {
	pc     *webrtc.PeerConnection
	dc     *webrtc.DataChannel
	h      core.ConnectionHandlers
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
}

func DefaultWebRTCConfig(iceURLs []string) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	if len(iceURLs) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceURLs}}
	}
	return cfg
}

func NewConnection(cfg webrtc.Configuration, h core.ConnectionHandlers, logger zerolog.Logger) (*Connection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	c := &Connection{
		pc:     pc,
		h:      h,
		logger: logger.With().Str("module", "webrtc").Logger(),
	}
	c.bind()
	return c, nil
}

func (c *Connection) bind() {
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		c.logger.Debug().Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		if c.h.OnStateChange == nil {
			return
		}
		switch s {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			// Handlers close the connection on these; pion must not be re-entered from its own callback.
			go c.h.OnStateChange(s)
		default:
			c.h.OnStateChange(s)
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		c.logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if c.h.OnTrack != nil {
			c.h.OnTrack(track)
		}
	})
}

// AddLocalTrack attaches a local track and drains its RTCP until the sender stops.
func (c *Connection) AddLocalTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return sender, nil
}

// ReceiveAudio adds a receive-only audio transceiver, for sessions without a local track.
func (c *Connection) ReceiveAudio() error {
	_, err := c.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	return err
}

// OpenDataChannel creates the event channel. Inbound messages are handed to
// OnMessage in arrival order from pion's read loop.
func (c *Connection) OpenDataChannel(label string) error {
	dc, err := c.pc.CreateDataChannel(label, nil)
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}
	dc.OnOpen(func() {
		c.logger.Info().Str("label", dc.Label()).Msg("data channel open")
		if c.h.OnChannelOpen != nil {
			c.h.OnChannelOpen()
		}
	})
	dc.OnClose(func() {
		c.logger.Info().Str("label", dc.Label()).Msg("data channel closed")
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if c.h.OnMessage != nil {
			c.h.OnMessage(msg.Data)
		}
	})
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()
	return nil
}

// CreateAndSetOffer sets the local offer and waits for ICE gathering so the
// returned SDP carries every candidate.
func (c *Connection) CreateAndSetOffer(ctx context.Context) (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.pc.LocalDescription(), nil
}

func (c *Connection) ApplyAnswer(sdp string) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

func (c *Connection) Send(data []byte) error {
	c.mu.Lock()
	dc := c.dc
	closed := c.closed
	c.mu.Unlock()
	if closed || dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return dc.SendText(string(data))
}

func (c *Connection) ChannelOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.dc != nil && c.dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	dc := c.dc
	c.mu.Unlock()

	var errs []error
	if dc != nil {
		if err := dc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data channel: %w", err))
		}
	}
	if err := c.pc.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close peer connection: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		c.logger.Error().Err(err).Msg("close error")
	} else {
		c.logger.Info().Msg("closed")
	}
	return err
}

func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
