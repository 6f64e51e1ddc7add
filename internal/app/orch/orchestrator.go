// Package orch owns the realtime voice session: its state machine, the
// handshake sequence and the routing of inbound events and media.
package orch

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/dkeye/VoiceTwin/internal/domain"
	"github.com/dkeye/VoiceTwin/internal/transcript"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSuperseded is returned by a Start whose attempt was overtaken by Stop,
	// a connection loss or a newer Start before it finished.
	ErrSuperseded    = errors.New("session attempt superseded")
	ErrNotLive       = errors.New("session not live")
	ErrChannelClosed = errors.New("event channel not open")
)

// Snapshot is the observable session state.
type Snapshot struct {
	SessionID core.SessionID             `json:"session_id,omitempty"`
	Status    domain.Status              `json:"status"`
	LastError string                     `json:"last_error,omitempty"`
	Messages  []domain.TranscriptMessage `json:"messages"`
	Streaming string                     `json:"streaming"`
}

// Publisher receives a snapshot after every observable change. Publish must not block.
type Publisher interface {
	Publish(Snapshot)
}

type SessionManager struct {
	Credentials core.CredentialFetcher
	Media       core.MediaPipeline
	Negotiator  core.Negotiator
	Publisher   Publisher

	reducer transcript.Reducer
	pubMu   sync.Mutex

	mu      sync.Mutex
	gen     uint64
	status  domain.Status
	lastErr string
	sid     core.SessionID
	logger  zerolog.Logger
	tstate  transcript.State
	res     resources
}

// resources are owned by the current attempt and released together.
type resources struct {
	conn   core.RemoteConnection
	stream core.LocalStream
	cancel context.CancelFunc
}

func NewSessionManager(creds core.CredentialFetcher, media core.MediaPipeline, neg core.Negotiator, pub Publisher) *SessionManager {
	return &SessionManager{
		Credentials: creds,
		Media:       media,
		Negotiator:  neg,
		Publisher:   pub,
		reducer:     transcript.Reducer{NewID: domain.NewMessageID},
		status:      domain.StatusDisconnected,
		logger:      log.With().Str("module", "orch").Logger(),
	}
}

func (m *SessionManager) Status() domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *SessionManager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *SessionManager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.tstate.Clone()
	if st.Messages == nil {
		st.Messages = []domain.TranscriptMessage{}
	}
	return Snapshot{
		SessionID: m.sid,
		Status:    m.status,
		LastError: m.lastErr,
		Messages:  st.Messages,
		Streaming: st.Streaming,
	}
}

// publish sends the current state. Snapshots are taken under pubMu so the
// last published snapshot is never older than the state it follows.
func (m *SessionManager) publish() {
	if m.Publisher == nil {
		return
	}
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.Publisher.Publish(m.Snapshot())
}

// detachLocked hands the attempt's resources to the caller, who releases them
// with release after dropping m.mu.
func (m *SessionManager) detachLocked() resources {
	r := m.res
	m.res = resources{}
	return r
}

func (r resources) empty() bool {
	return r.conn == nil && r.stream == nil && r.cancel == nil
}

func (m *SessionManager) release(r resources, logger zerolog.Logger) {
	if r.cancel != nil {
		r.cancel()
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			logger.Warn().Err(err).Msg("close connection")
		}
	}
	if r.stream != nil {
		m.Media.Release(r.stream)
	}
}
