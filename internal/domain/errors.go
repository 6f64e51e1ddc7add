package domain

import (
	"errors"
	"fmt"
)

// ConnectionLost is shown to the user after any post-connect transport failure.
const ConnectionLost = "Connection lost. Please try again."

type ErrorKind int

const (
	KindCredential ErrorKind = iota + 1
	KindMedia
	KindNegotiation
	KindTransport
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindMedia:
		return "media"
	case KindNegotiation:
		return "negotiation"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// SessionError is a classified failure of one session step.
// Msg is user-facing; Err is the underlying cause and is never shown to the user.
type SessionError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *SessionError) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return e.Kind.String() + " error"
	}
}

func (e *SessionError) Unwrap() error { return e.Err }

// Is matches kind sentinels: errors.Is(err, ErrCredential) holds for every credential error.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrCredential  = &SessionError{Kind: KindCredential}
	ErrMedia       = &SessionError{Kind: KindMedia}
	ErrNegotiation = &SessionError{Kind: KindNegotiation}
	ErrTransport   = &SessionError{Kind: KindTransport}
	ErrProtocol    = &SessionError{Kind: KindProtocol}

	ErrNoSecret = &SessionError{Kind: KindCredential, Msg: "Backend error: No secret received"}
)

func NewCredentialError(msg string, err error) error {
	return &SessionError{Kind: KindCredential, Msg: msg, Err: err}
}

func NewMediaError(msg string, err error) error {
	return &SessionError{Kind: KindMedia, Msg: msg, Err: err}
}

func NewNegotiationError(msg string, err error) error {
	return &SessionError{Kind: KindNegotiation, Msg: msg, Err: err}
}

func NewTransportError(msg string, err error) error {
	return &SessionError{Kind: KindTransport, Msg: msg, Err: err}
}

func NewProtocolError(msg string, err error) error {
	return &SessionError{Kind: KindProtocol, Msg: msg, Err: err}
}

// UserMessage renders err as the one-line text shown next to the status.
// Causes are dropped so raw payloads never reach the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *SessionError
	if errors.As(err, &se) {
		if se.Kind == KindTransport {
			return ConnectionLost
		}
		if se.Msg != "" {
			return se.Msg
		}
		return se.Kind.String() + " error"
	}
	return err.Error()
}
