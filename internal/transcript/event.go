// Package transcript decodes realtime data channel events and folds them
// into a finalized message list plus one streaming buffer.
package transcript

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/VoiceTwin/internal/domain"
)

type EventType string

const (
	EventUserTranscript   EventType = "conversation.item.input_audio_transcription.completed"
	EventAssistantDelta   EventType = "response.audio_transcript.delta"
	EventAssistantDone    EventType = "response.audio_transcript.done"
	EventError            EventType = "error"
	eventOutputAudioDelta EventType = "response.output_audio_transcript.delta"
	eventOutputAudioDone  EventType = "response.output_audio_transcript.done"
)

// ErrUnknownEvent marks a well-formed event of a type this package does not handle.
// Callers drop these silently; the protocol may add types at any time.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is one recognized inbound event.
type Event struct {
	Type EventType
	// Text holds the transcript, the delta fragment or the error message, by Type.
	Text   string
	ItemID string
}

type wireEvent struct {
	Type       EventType `json:"type"`
	ItemID     string    `json:"item_id"`
	Transcript *string   `json:"transcript"`
	Delta      *string   `json:"delta"`
	Error      *struct {
		Message *string `json:"message"`
	} `json:"error"`
}

// Decode parses one data channel message.
// Malformed input yields a domain protocol error; unknown types yield ErrUnknownEvent.
func Decode(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, domain.NewProtocolError("malformed event", err)
	}
	if w.Type == "" {
		return Event{}, domain.NewProtocolError("event without type", nil)
	}

	ev := Event{Type: w.Type, ItemID: w.ItemID}
	switch w.Type {
	case EventUserTranscript, EventAssistantDone, eventOutputAudioDone:
		if w.Transcript == nil {
			return Event{}, missingField(w.Type, "transcript")
		}
		ev.Text = *w.Transcript
	case EventAssistantDelta, eventOutputAudioDelta:
		if w.Delta == nil {
			return Event{}, missingField(w.Type, "delta")
		}
		ev.Text = *w.Delta
	case EventError:
		if w.Error == nil || w.Error.Message == nil {
			return Event{}, missingField(w.Type, "error.message")
		}
		ev.Text = *w.Error.Message
	default:
		return Event{}, ErrUnknownEvent
	}

	switch ev.Type {
	case eventOutputAudioDelta:
		ev.Type = EventAssistantDelta
	case eventOutputAudioDone:
		ev.Type = EventAssistantDone
	}
	return ev, nil
}

func missingField(t EventType, field string) error {
	return domain.NewProtocolError(string(t)+": missing "+field, nil)
}
