package core

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/dkeye/VoiceTwin/internal/core CredentialFetcher,MediaPipeline,Negotiator

import (
	"context"
	"time"
)

// Credential is a short-lived bearer token authorizing one signaling exchange.
type Credential struct {
	Token     string
	ExpiresAt time.Time // zero when the backend does not report it
}

type CredentialFetcher interface {
	Fetch(ctx context.Context) (Credential, error)
}
