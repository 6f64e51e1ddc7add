package playback

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

type recordingWriter struct {
	mu     sync.Mutex
	seqs   []uint16
	failAt int
	closed int
}

func (w *recordingWriter) WriteRTP(p *rtp.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAt > 0 && len(w.seqs)+1 == w.failAt {
		return errors.New("broken pipe")
	}
	w.seqs = append(w.seqs, p.SequenceNumber)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed++
	return nil
}

func (w *recordingWriter) snapshot() ([]uint16, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]uint16(nil), w.seqs...), w.closed
}

func packets(n int) ReadFunc {
	i := 0
	return func() (*rtp.Packet, error) {
		if i >= n {
			return nil, io.EOF
		}
		i++
		return &rtp.Packet{Header: rtp.Header{SequenceNumber: uint16(i)}}, nil
	}
}

func TestRelayForwardsInOrder(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRelay(packets(5))
	w := &recordingWriter{}
	r.AddSink("speaker", w)

	r.Run(context.Background(), &logger)

	seqs, closed := w.snapshot()
	if len(seqs) != 5 {
		t.Fatalf("forwarded %d packets, want 5", len(seqs))
	}
	for i, s := range seqs {
		if s != uint16(i+1) {
			t.Errorf("seqs[%d] = %d, want %d", i, s, i+1)
		}
	}
	if closed != 1 {
		t.Errorf("Close called %d times, want 1", closed)
	}
	if r.SinkCount() != 0 {
		t.Errorf("SinkCount = %d after Run, want 0", r.SinkCount())
	}
}

func TestRelayDropsFailingSink(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRelay(packets(4))
	bad := &recordingWriter{failAt: 2}
	good := &recordingWriter{}
	r.AddSink("bad", bad)
	r.AddSink("good", good)

	r.Run(context.Background(), &logger)

	badSeqs, badClosed := bad.snapshot()
	goodSeqs, _ := good.snapshot()
	if len(badSeqs) != 1 {
		t.Errorf("bad sink got %d packets, want 1", len(badSeqs))
	}
	if badClosed != 1 {
		t.Errorf("bad sink closed %d times, want 1", badClosed)
	}
	if len(goodSeqs) != 4 {
		t.Errorf("good sink got %d packets, want 4", len(goodSeqs))
	}
}

func TestRelayMutedSinkSkipped(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRelay(packets(3))
	w := &recordingWriter{}
	s := r.AddSink("speaker", w)
	s.MarkMuted()

	r.Run(context.Background(), &logger)

	if seqs, _ := w.snapshot(); len(seqs) != 0 {
		t.Errorf("muted sink got %d packets", len(seqs))
	}
}

func TestRelayStopsOnContext(t *testing.T) {
	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRelay(func() (*rtp.Packet, error) {
		time.Sleep(time.Millisecond)
		return &rtp.Packet{}, nil
	})
	w := &recordingWriter{}
	r.AddSink("speaker", w)

	done := make(chan struct{})
	go func() {
		r.Run(ctx, &logger)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if _, closed := w.snapshot(); closed != 1 {
		t.Errorf("sink closed %d times, want 1", closed)
	}
}

func TestAddSinkReplaces(t *testing.T) {
	r := NewRelay(packets(0))
	first := &recordingWriter{}
	r.AddSink("speaker", first)
	r.AddSink("speaker", &recordingWriter{})

	if _, closed := first.snapshot(); closed != 1 {
		t.Errorf("replaced sink closed %d times, want 1", closed)
	}
	if r.SinkCount() != 1 {
		t.Errorf("SinkCount = %d, want 1", r.SinkCount())
	}
}
