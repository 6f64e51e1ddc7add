package media

import (
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

// speaker plays Opus RTP through ffplay reading Ogg from stdin.
type speaker struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	ogg   *oggwriter.OggWriter
}

func openSpeaker(ffplay string, sampleRate uint32, channels uint16) (*speaker, error) {
	path, err := exec.LookPath(ffplay)
	if err != nil {
		return nil, fmt.Errorf("find ffplay: %w", err)
	}
	cmd := exec.Command(path, "-nodisp", "-autoexit", "-loglevel", "error", "-f", "ogg", "-i", "pipe:0")
	cmd.WaitDelay = waitDelay
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffplay stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffplay: %w", err)
	}
	if sampleRate == 0 {
		sampleRate = opusClockRate
	}
	if channels == 0 {
		channels = opusChannels
	}
	ogg, err := oggwriter.NewWith(stdin, sampleRate, channels)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("ogg writer: %w", err)
	}
	return &speaker{cmd: cmd, stdin: stdin, ogg: ogg}, nil
}

func (s *speaker) WriteRTP(p *rtp.Packet) error {
	return s.ogg.WriteRTP(p)
}

func (s *speaker) Close() error {
	err := s.ogg.Close()
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if werr := s.cmd.Wait(); werr != nil {
		var exitErr *exec.ExitError
		if !errors.As(werr, &exitErr) {
			err = errors.Join(err, werr)
		}
	}
	return err
}
