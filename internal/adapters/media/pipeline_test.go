package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/dkeye/VoiceTwin/internal/config"
	"github.com/dkeye/VoiceTwin/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

func TestCaptureArgs(t *testing.T) {
	cases := []struct {
		goos, format, device string
		wantFormat, wantDev  string
	}{
		{"linux", "", "", "pulse", "default"},
		{"darwin", "", "", "avfoundation", ":0"},
		{"windows", "", "", "dshow", "audio=default"},
		{"linux", "alsa", "hw:1", "alsa", "hw:1"},
		{"plan9", "oss", "/dev/dsp", "oss", "/dev/dsp"},
	}
	for _, tc := range cases {
		t.Run(tc.goos+"/"+tc.format, func(t *testing.T) {
			args, err := captureArgs(tc.goos, tc.format, tc.device)
			if err != nil {
				t.Fatalf("captureArgs: %v", err)
			}
			i := slices.Index(args, "-f")
			if i < 0 || args[i+1] != tc.wantFormat {
				t.Errorf("input format in %v, want %s", args, tc.wantFormat)
			}
			j := slices.Index(args, "-i")
			if j < 0 || args[j+1] != tc.wantDev {
				t.Errorf("input device in %v, want %s", args, tc.wantDev)
			}
			if args[len(args)-1] != "pipe:1" || !slices.Contains(args, "libopus") {
				t.Errorf("args %v must encode opus to stdout", args)
			}
		})
	}
}

func TestCaptureArgsUnsupported(t *testing.T) {
	if _, err := captureArgs("plan9", "", ""); !errors.Is(err, errUnsupportedPlatform) {
		t.Fatalf("err = %v, want errUnsupportedPlatform", err)
	}
}

func TestCaptureFailureMessage(t *testing.T) {
	cases := map[string]string{
		"[pulse] Permission denied":            "Microphone permission denied",
		"default: No such file or directory":   "No microphone found",
		"":                                     "Microphone unavailable",
		"Unknown input format: 'avfoundation'": "Microphone unavailable",
	}
	for in, want := range cases {
		if got := captureFailureMessage(in); got != want {
			t.Errorf("captureFailureMessage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAcquireMissingFFmpeg(t *testing.T) {
	p := NewPipeline(config.MediaConfig{FFmpegPath: filepath.Join(t.TempDir(), "no-ffmpeg")})
	s, err := p.Acquire(context.Background())
	if !errors.Is(err, domain.ErrMedia) {
		t.Fatalf("err = %v, want media error", err)
	}
	if s != nil {
		t.Errorf("stream = %v, want nil", s)
	}
}

// fakeFFmpeg writes an executable shell script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAcquirePermissionDenied(t *testing.T) {
	path := fakeFFmpeg(t, `echo "default: Permission denied" >&2; exit 1`)
	p := NewPipeline(config.MediaConfig{FFmpegPath: path, InputFormat: "pulse", InputDevice: "default"})

	_, err := p.Acquire(context.Background())
	if !errors.Is(err, domain.ErrMedia) {
		t.Fatalf("err = %v, want media error", err)
	}
	if got := domain.UserMessage(err); got != "Microphone permission denied" {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestAcquireCanceledWhileWaiting(t *testing.T) {
	path := fakeFFmpeg(t, `exec sleep 10`)
	p := NewPipeline(config.MediaConfig{FFmpegPath: path, InputFormat: "pulse", InputDevice: "default"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Acquire(ctx)
	if !errors.Is(err, domain.ErrMedia) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want media error wrapping deadline", err)
	}
}

func oggFixture(t *testing.T, pages int) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := oggwriter.NewWith(&buf, 48000, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := range pages {
		pkt := &rtp.Packet{
			Header:  rtp.Header{SequenceNumber: uint16(i), Timestamp: uint32(960 * i)},
			Payload: []byte{0xf8, 0xff, 0xfe},
		}
		if err := w.WriteRTP(pkt); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "mic.ogg")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAcquireStreamsAndStops(t *testing.T) {
	fixture := oggFixture(t, 5)
	path := fakeFFmpeg(t, `cat "`+fixture+`"; exec sleep 10`)
	p := NewPipeline(config.MediaConfig{FFmpegPath: path, InputFormat: "pulse", InputDevice: "default"})

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !s.Active() {
		t.Error("stream inactive right after Acquire")
	}
	tracks := s.Tracks()
	if len(tracks) != 1 || tracks[0].Kind().String() != "audio" {
		t.Fatalf("tracks = %v, want one audio track", tracks)
	}

	p.Release(s)
	p.Release(s)
	p.Release(nil)
	if s.Active() {
		t.Error("stream active after Release")
	}
	if len(s.Tracks()) != 0 {
		t.Error("released stream still reports tracks")
	}
}

func TestIsOpusTags(t *testing.T) {
	if !isOpusTags([]byte("OpusTags\x00\x00")) {
		t.Error("OpusTags page not detected")
	}
	if isOpusTags([]byte{0xf8, 0xff}) {
		t.Error("audio page detected as tags")
	}
}
