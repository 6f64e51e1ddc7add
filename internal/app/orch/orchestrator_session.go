package orch

import (
	"context"

	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/dkeye/VoiceTwin/internal/domain"
	"github.com/dkeye/VoiceTwin/internal/transcript"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Start runs the handshake: credential fetch and microphone capture in
// parallel, then one signaling exchange. It is a no-op while a session is
// connecting or live. The session itself outlives ctx; ctx only bounds the handshake.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.status.Active() {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	gen := m.gen
	m.status = domain.StatusConnecting
	m.lastErr = ""
	m.sid = core.SessionID(uuid.NewString())
	m.tstate = transcript.State{}
	m.logger = log.With().Str("module", "orch").Str("sid", string(m.sid)).Logger()
	logger := m.logger

	sessCtx, cancel := context.WithCancel(logger.WithContext(context.WithoutCancel(ctx)))
	m.res = resources{cancel: cancel}
	m.mu.Unlock()

	logger.Info().Msg("session starting")
	m.publish()

	hctx, hcancel := context.WithCancel(sessCtx)
	defer hcancel()
	defer context.AfterFunc(ctx, hcancel)()

	var (
		cred   core.Credential
		stream core.LocalStream
	)
	g, gctx := errgroup.WithContext(hctx)
	g.Go(func() error {
		c, err := m.Credentials.Fetch(gctx)
		if err != nil {
			return err
		}
		cred = c
		return nil
	})
	g.Go(func() error {
		s, err := m.Media.Acquire(gctx)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err := g.Wait(); err != nil {
		if stream != nil {
			m.Media.Release(stream)
		}
		return m.fail(gen, err)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		m.Media.Release(stream)
		return ErrSuperseded
	}
	m.res.stream = stream
	m.mu.Unlock()

	inbox := make(chan []byte, inboxSize)
	go m.dispatch(sessCtx, gen, inbox)

	conn, err := m.Negotiator.Negotiate(hctx, stream, cred, m.handlers(sessCtx, gen, inbox))
	if err != nil {
		return m.fail(gen, err)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		_ = conn.Close()
		logger.Info().Msg("handshake finished after session was superseded, closed")
		return ErrSuperseded
	}
	m.res.conn = conn
	m.status = domain.StatusLive
	m.mu.Unlock()

	logger.Info().Msg("session live")
	m.publish()
	return nil
}

// Stop tears the session down and clears the transcript. Idempotent.
// It never holds the session lock while closing resources, so it is safe
// to call from connection callbacks.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	m.gen++
	r := m.detachLocked()
	changed := m.status != domain.StatusDisconnected || m.lastErr != "" ||
		len(m.tstate.Messages) > 0 || m.tstate.Streaming != "" || !r.empty()
	m.status = domain.StatusDisconnected
	m.lastErr = ""
	m.tstate = transcript.State{}
	m.sid = ""
	logger := m.logger
	m.mu.Unlock()

	m.release(r, logger)
	if changed {
		logger.Info().Msg("session stopped")
		m.publish()
	}
}

// fail ends attempt gen with err unless the attempt was already superseded.
func (m *SessionManager) fail(gen uint64, err error) error {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ErrSuperseded
	}
	m.gen++
	r := m.detachLocked()
	m.status = domain.StatusError
	m.lastErr = domain.UserMessage(err)
	logger := m.logger
	m.mu.Unlock()

	m.release(r, logger)
	logger.Error().Err(err).Msg("session start failed")
	m.publish()
	return err
}

// connectionLost is the internal stop after a terminal transport state.
func (m *SessionManager) connectionLost(gen uint64, state string) {
	m.mu.Lock()
	if m.gen != gen || !m.status.Active() {
		m.mu.Unlock()
		return
	}
	m.gen++
	r := m.detachLocked()
	m.status = domain.StatusError
	m.lastErr = domain.ConnectionLost
	m.tstate = transcript.State{}
	logger := m.logger
	m.mu.Unlock()

	m.release(r, logger)
	logger.Warn().Str("peer_connection_state", state).Msg("connection lost")
	m.publish()
}
