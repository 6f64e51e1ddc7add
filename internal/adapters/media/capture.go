package media

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog"
)

const (
	opusClockRate = 48000
	opusChannels  = 2
)

var errUnsupportedPlatform = errors.New("no default audio input for platform")

// captureArgs builds the ffmpeg command line that encodes the default
// microphone as 20ms Ogg/Opus pages on stdout.
func captureArgs(goos, format, device string) ([]string, error) {
	if format == "" || device == "" {
		defFormat, defDevice, ok := defaultInput(goos)
		if !ok {
			return nil, fmt.Errorf("%w: %s", errUnsupportedPlatform, goos)
		}
		if format == "" {
			format = defFormat
		}
		if device == "" {
			device = defDevice
		}
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format, "-i", device,
		"-ac", "1", "-ar", "48000",
		"-c:a", "libopus", "-b:a", "32k",
		"-application", "voip", "-frame_duration", "20",
		"-page_duration", "20000",
		"-f", "ogg", "pipe:1",
	}, nil
}

func defaultInput(goos string) (format, device string, ok bool) {
	switch goos {
	case "linux":
		return "pulse", "default", true
	case "darwin":
		return "avfoundation", ":0", true
	case "windows":
		return "dshow", "audio=default", true
	}
	return "", "", false
}

// micStream is a running capture process feeding one Opus track.
type micStream struct {
	track  *webrtc.TrackLocalStaticSample
	cmd    *exec.Cmd
	done   chan struct{}
	logger zerolog.Logger

	stopOnce sync.Once
	stopped  atomic.Bool
}

func newMicStream(track *webrtc.TrackLocalStaticSample, cmd *exec.Cmd, logger zerolog.Logger) *micStream {
	return &micStream{
		track:  track,
		cmd:    cmd,
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (s *micStream) Tracks() []webrtc.TrackLocal {
	if s.stopped.Load() {
		return nil
	}
	return []webrtc.TrackLocal{s.track}
}

func (s *micStream) Active() bool {
	if s.stopped.Load() {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *micStream) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
			_ = s.cmd.Wait()
		}
		s.logger.Info().Msg("capture stopped")
	})
}

// pump copies Ogg pages into the track until the reader fails.
// Sample duration follows the granule position delta.
func (s *micStream) pump(r *oggreader.OggReader) {
	defer close(s.done)
	var lastGranule uint64
	for {
		page, header, err := r.ParseNextPage()
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.stopped.Load() {
				s.logger.Warn().Err(err).Msg("capture read error")
			}
			return
		}
		if isOpusTags(page) {
			continue
		}
		samples := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		duration := time.Duration(samples) * time.Second / opusClockRate
		if err := s.track.WriteSample(pmedia.Sample{Data: page, Duration: duration}); err != nil {
			s.logger.Debug().Err(err).Msg("write sample")
		}
	}
}

func isOpusTags(page []byte) bool {
	return len(page) >= 8 && string(page[:8]) == "OpusTags"
}
