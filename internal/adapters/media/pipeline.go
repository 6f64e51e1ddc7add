// Package media captures the microphone with ffmpeg and plays remote audio with ffplay.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/dkeye/VoiceTwin/internal/app/playback"
	"github.com/dkeye/VoiceTwin/internal/config"
	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/dkeye/VoiceTwin/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog"
)

const waitDelay = 2 * time.Second

// Pipeline implements core.MediaPipeline.
type Pipeline struct {
	cfg  config.MediaConfig
	goos string
}

func NewPipeline(cfg config.MediaConfig) *Pipeline {
	return &Pipeline{cfg: cfg, goos: runtime.GOOS}
}

// Acquire starts ffmpeg and returns once the first Ogg page arrived.
// The capture outlives ctx; only the wait for the header is bounded by it.
func (p *Pipeline) Acquire(ctx context.Context) (core.LocalStream, error) {
	logger := zerolog.Ctx(ctx).With().Str("module", "media").Logger()

	path, err := exec.LookPath(p.cfg.FFmpegPath)
	if err != nil {
		return nil, domain.NewMediaError("Microphone unavailable: ffmpeg not found", err)
	}
	args, err := captureArgs(p.goos, p.cfg.InputFormat, p.cfg.InputDevice)
	if err != nil {
		return nil, domain.NewMediaError("Microphone unavailable", err)
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusClockRate, Channels: opusChannels},
		"audio", "voicetwin-mic",
	)
	if err != nil {
		return nil, domain.NewMediaError("Microphone unavailable", err)
	}

	cmd := exec.Command(path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, domain.NewMediaError("Microphone unavailable", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, domain.NewMediaError("Microphone unavailable", err)
	}

	type header struct {
		r   *oggreader.OggReader
		err error
	}
	ready := make(chan header, 1)
	go func() {
		r, _, err := oggreader.NewWith(stdout)
		ready <- header{r: r, err: err}
	}()

	abort := func(cause error) error {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		detail := strings.TrimSpace(stderr.String())
		logger.Warn().Err(cause).Str("stderr", detail).Msg("capture failed")
		if detail != "" {
			cause = fmt.Errorf("%w: %s", cause, detail)
		}
		return domain.NewMediaError(captureFailureMessage(detail), cause)
	}

	var h header
	select {
	case h = <-ready:
	case <-ctx.Done():
		return nil, abort(ctx.Err())
	}
	if h.err != nil {
		return nil, abort(h.err)
	}

	s := newMicStream(track, cmd, logger)
	go s.pump(h.r)
	logger.Info().Str("ffmpeg", path).Msg("capture started")
	return s, nil
}

func captureFailureMessage(stderr string) string {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "not authorized"):
		return "Microphone permission denied"
	case strings.Contains(lower, "no such"), strings.Contains(lower, "not found"), strings.Contains(lower, "could not"):
		return "No microphone found"
	default:
		return "Microphone unavailable"
	}
}

func (p *Pipeline) Release(s core.LocalStream) {
	if s == nil {
		return
	}
	s.Stop()
}

// Play relays the remote audio track into a local speaker until the track or ctx ends.
// Without a speaker the track is still drained.
func (p *Pipeline) Play(ctx context.Context, track *webrtc.TrackRemote) {
	logger := zerolog.Ctx(ctx).With().Str("module", "media").Str("track_id", track.ID()).Logger()
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		logger.Debug().Str("kind", track.Kind().String()).Msg("ignoring non-audio track")
		return
	}

	relay := playback.NewRelay(func() (*rtp.Packet, error) {
		pkt, _, err := track.ReadRTP()
		return pkt, err
	})
	if p.cfg.Playback {
		codec := track.Codec()
		spk, err := openSpeaker(p.cfg.FFplayPath, codec.ClockRate, codec.Channels)
		if err != nil {
			logger.Warn().Err(err).Msg("playback unavailable, draining remote audio")
		} else {
			relay.AddSink("speaker", spk)
		}
	}
	relay.Run(ctx, &logger)
}

var _ core.MediaPipeline = (*Pipeline)(nil)
