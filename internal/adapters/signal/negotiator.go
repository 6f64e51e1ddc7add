// Package signal performs the SDP offer/answer exchange with the realtime service.
package signal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dkeye/VoiceTwin/internal/adapters/rtc"
	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/dkeye/VoiceTwin/internal/domain"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// maxAnswerSize bounds the answer body; real answers are a few KB.
const maxAnswerSize = 1 << 20

type Negotiator struct {
	Endpoint    string // e.g. https://api.openai.com/v1/realtime
	Model       string
	DataChannel string
	WebRTC      webrtc.Configuration
	Client      *http.Client
}

func NewNegotiator(endpoint, model, dataChannel string, iceURLs []string) *Negotiator {
	return &Negotiator{
		Endpoint:    endpoint,
		Model:       model,
		DataChannel: dataChannel,
		WebRTC:      rtc.DefaultWebRTCConfig(iceURLs),
		Client:      &http.Client{},
	}
}

// Negotiate builds a peer connection around stream and completes one offer/answer round trip.
func (n *Negotiator) Negotiate(
	ctx context.Context,
	stream core.LocalStream,
	cred core.Credential,
	h core.ConnectionHandlers,
) (core.RemoteConnection, error) {
	logger := zerolog.Ctx(ctx).With().Str("module", "signal").Logger()

	conn, err := rtc.NewConnection(n.WebRTC, h, *zerolog.Ctx(ctx))
	if err != nil {
		return nil, domain.NewNegotiationError("Negotiation failed", err)
	}

	answer, err := n.negotiate(ctx, conn, stream, cred)
	if err != nil {
		_ = conn.Close()
		logger.Error().Err(err).Msg("negotiation failed")
		return nil, err
	}
	if err := conn.ApplyAnswer(answer); err != nil {
		_ = conn.Close()
		logger.Error().Err(err).Msg("apply answer")
		return nil, domain.NewNegotiationError("Negotiation failed: invalid answer", err)
	}
	logger.Info().Msg("negotiated")
	return conn, nil
}

func (n *Negotiator) negotiate(ctx context.Context, conn *rtc.Connection, stream core.LocalStream, cred core.Credential) (string, error) {
	var tracks []webrtc.TrackLocal
	if stream != nil {
		tracks = stream.Tracks()
	}
	for _, t := range tracks {
		if _, err := conn.AddLocalTrack(t); err != nil {
			return "", domain.NewNegotiationError("Negotiation failed", fmt.Errorf("add track: %w", err))
		}
	}
	if len(tracks) == 0 {
		if err := conn.ReceiveAudio(); err != nil {
			return "", domain.NewNegotiationError("Negotiation failed", fmt.Errorf("add transceiver: %w", err))
		}
	}
	if err := conn.OpenDataChannel(n.DataChannel); err != nil {
		return "", domain.NewNegotiationError("Negotiation failed", err)
	}

	offer, err := conn.CreateAndSetOffer(ctx)
	if err != nil {
		return "", domain.NewNegotiationError("Negotiation failed", err)
	}
	return n.Exchange(ctx, offer.SDP, cred.Token)
}

// Exchange posts the offer and returns the validated answer SDP.
func (n *Negotiator) Exchange(ctx context.Context, offer, token string) (string, error) {
	endpoint, err := n.endpointURL()
	if err != nil {
		return "", domain.NewNegotiationError("Negotiation failed", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(offer))
	if err != nil {
		return "", domain.NewNegotiationError("Negotiation failed", err)
	}
	req.Header.Set("Content-Type", "application/sdp")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := n.client().Do(req)
	if err != nil {
		return "", domain.NewNegotiationError("Negotiation failed: realtime service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerSize))
	if err != nil {
		return "", domain.NewNegotiationError("Negotiation failed", fmt.Errorf("read answer: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", domain.NewNegotiationError(
			fmt.Sprintf("Negotiation failed: status %d", resp.StatusCode),
			fmt.Errorf("realtime service returned %s", resp.Status),
		)
	}

	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal(body); err != nil {
		return "", domain.NewNegotiationError("Negotiation failed: invalid answer", err)
	}
	return string(body), nil
}

func (n *Negotiator) endpointURL() (string, error) {
	u, err := url.Parse(n.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	q := u.Query()
	q.Set("model", n.Model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (n *Negotiator) client() *http.Client {
	if n.Client != nil {
		return n.Client
	}
	return http.DefaultClient
}
