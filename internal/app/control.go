package app

import (
	"context"

	"github.com/dkeye/VoiceTwin/internal/app/orch"
)

// SessionControl is what the control surfaces need from the session manager.
type SessionControl interface {
	Start(ctx context.Context) error
	Stop()
	Snapshot() orch.Snapshot
	Send(event any) error
}

var _ SessionControl = (*orch.SessionManager)(nil)
