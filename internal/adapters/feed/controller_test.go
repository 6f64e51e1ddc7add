package feed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/VoiceTwin/internal/app"
	"github.com/dkeye/VoiceTwin/internal/app/orch"
	"github.com/dkeye/VoiceTwin/internal/config"
	"github.com/dkeye/VoiceTwin/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type fakeSession struct {
	mu      sync.Mutex
	status  domain.Status
	stops   int
	sent    []string
	sendErr error
	starts  chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{starts: make(chan struct{}, 8)}
}

func (s *fakeSession) Start(context.Context) error {
	s.starts <- struct{}{}
	return nil
}

func (s *fakeSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *fakeSession) Snapshot() orch.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return orch.Snapshot{Status: s.status, Messages: []domain.TranscriptMessage{}}
}

func (s *fakeSession) Send(event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	b, _ := json.Marshal(event)
	s.sent = append(s.sent, string(b))
	return nil
}

type feedServer struct {
	url string
	reg *app.Registry
}

func newFeedServer(t *testing.T, sess app.SessionControl, limiter *app.StartLimiter) feedServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := app.NewRegistry(nil)
	ctl := NewController(sess, reg, limiter, config.FeedConfig{
		ReadLimit:  4096,
		PingPeriod: time.Minute,
		SendBuffer: 8,
	})
	r := gin.New()
	r.GET("/feed", func(c *gin.Context) {
		c.Set("client_token", "tester")
		ctl.Handle(context.Background(), c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return feedServer{url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed", reg: reg}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readMsg(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

func write(t *testing.T, ws *websocket.Conn, msg string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestFeedInitialStateAndPing(t *testing.T) {
	fs := newFeedServer(t, newFakeSession(), nil)
	ws := dial(t, fs.url)

	m := readMsg(t, ws)
	if m["type"] != "session_state" || m["status"] != "disconnected" {
		t.Fatalf("initial frame = %v", m)
	}

	write(t, ws, `{"type":"ping"}`)
	if m := readMsg(t, ws); m["type"] != "pong" {
		t.Errorf("ping answer = %v", m)
	}
}

func TestFeedStartRateLimited(t *testing.T) {
	sess := newFakeSession()
	fs := newFeedServer(t, sess, app.NewStartLimiter(1, time.Minute))
	ws := dial(t, fs.url)
	readMsg(t, ws)

	write(t, ws, `{"type":"start"}`)
	select {
	case <-sess.starts:
	case <-time.After(2 * time.Second):
		t.Fatal("start command did not reach the session")
	}

	write(t, ws, `{"type":"start"}`)
	m := readMsg(t, ws)
	if m["type"] != "error" || m["error"] != "rate_limited" {
		t.Errorf("second start answer = %v", m)
	}
}

func TestFeedSendAndErrors(t *testing.T) {
	sess := newFakeSession()
	fs := newFeedServer(t, sess, nil)
	ws := dial(t, fs.url)
	readMsg(t, ws)

	write(t, ws, `{"type":"send","event":{"type":"response.create"}}`)
	write(t, ws, `{"type":"snapshot"}`)
	if m := readMsg(t, ws); m["type"] != "session_state" {
		t.Fatalf("snapshot answer = %v", m)
	}
	sess.mu.Lock()
	sent := append([]string(nil), sess.sent...)
	sess.sendErr = orch.ErrNotLive
	sess.mu.Unlock()
	if len(sent) != 1 || sent[0] != `{"type":"response.create"}` {
		t.Errorf("forwarded events = %q", sent)
	}

	cases := map[string]string{
		`{"type":"send","event":{"type":"x"}}`: "not_live",
		`{"type":"send"}`:                      "missing_event",
		`{"type":"dance"}`:                     "unknown_command",
		`nope`:                                 "bad_json",
	}
	for in, want := range cases {
		write(t, ws, in)
		if m := readMsg(t, ws); m["type"] != "error" || m["error"] != want {
			t.Errorf("%s answered %v, want error %s", in, m, want)
		}
	}
}

func TestFeedStopAndBroadcast(t *testing.T) {
	sess := newFakeSession()
	fs := newFeedServer(t, sess, nil)
	a := dial(t, fs.url)
	b := dial(t, fs.url)
	readMsg(t, a)
	readMsg(t, b)

	Publisher{Registry: fs.reg}.Publish(orch.Snapshot{Status: domain.StatusLive, Streaming: "Hel"})
	for _, ws := range []*websocket.Conn{a, b} {
		m := readMsg(t, ws)
		if m["type"] != "session_state" || m["status"] != "live" || m["streaming"] != "Hel" {
			t.Errorf("broadcast frame = %v", m)
		}
	}

	write(t, a, `{"type":"stop"}`)
	write(t, a, `{"type":"ping"}`)
	readMsg(t, a)
	sess.mu.Lock()
	stops := sess.stops
	sess.mu.Unlock()
	if stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
}

func TestFeedUnsubscribesOnDisconnect(t *testing.T) {
	fs := newFeedServer(t, newFakeSession(), nil)
	ws := dial(t, fs.url)
	readMsg(t, ws)
	if fs.reg.Len() != 1 {
		t.Fatalf("Len = %d, want 1", fs.reg.Len())
	}

	_ = ws.Close()
	deadline := time.Now().Add(2 * time.Second)
	for fs.reg.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
