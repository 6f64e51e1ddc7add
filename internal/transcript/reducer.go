package transcript

import (
	"slices"

	"github.com/dkeye/VoiceTwin/internal/domain"
)

// State is the session-scoped transcript: finalized messages and the
// assistant's in-flight utterance.
type State struct {
	Messages  []domain.TranscriptMessage
	Streaming string
}

// Clone returns a copy that shares nothing mutable with s.
func (s State) Clone() State {
	return State{Messages: slices.Clone(s.Messages), Streaming: s.Streaming}
}

// Outcome reports side information of one reduction step.
type Outcome struct {
	// Err is the message of an error event.
	Err string
	// Diverged is set when a done transcript differs from the streamed deltas.
	Diverged bool
}

// Reducer folds events into State. The zero value is ready to use.
type Reducer struct {
	// NewID names messages whose event carries no item id.
	NewID func() domain.MessageID
}

// Reduce applies ev to s and returns the next state. s is never modified.
func (r Reducer) Reduce(s State, ev Event) (State, Outcome) {
	switch ev.Type {
	case EventUserTranscript:
		s.Messages = r.appendMessage(s.Messages, ev, domain.RoleUser)
	case EventAssistantDelta:
		s.Streaming += ev.Text
	case EventAssistantDone:
		// The done transcript is authoritative, the buffer is only a preview.
		out := Outcome{Diverged: s.Streaming != "" && s.Streaming != ev.Text}
		s.Messages = r.appendMessage(s.Messages, ev, domain.RoleAssistant)
		s.Streaming = ""
		return s, out
	case EventError:
		return s, Outcome{Err: ev.Text}
	}
	return s, Outcome{}
}

func (r Reducer) appendMessage(msgs []domain.TranscriptMessage, ev Event, role domain.Role) []domain.TranscriptMessage {
	id := domain.MessageID(ev.ItemID)
	if id == "" && r.NewID != nil {
		id = r.NewID()
	}
	// Clip forces a fresh backing array so earlier states stay intact.
	return append(slices.Clip(msgs), domain.NewTranscriptMessage(id, role, ev.Text))
}
