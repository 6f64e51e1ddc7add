package domain

import "github.com/oklog/ulid/v2"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type MessageID string

// TranscriptMessage is a finalized utterance. It is never mutated after creation.
type TranscriptMessage struct {
	ID   MessageID `json:"id"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
}

// NewMessageID returns a lexically sortable id; ids made later sort after earlier ones.
func NewMessageID() MessageID {
	return MessageID(ulid.Make().String())
}

func NewTranscriptMessage(id MessageID, role Role, text string) TranscriptMessage {
	if id == "" {
		id = NewMessageID()
	}
	return TranscriptMessage{ID: id, Role: role, Text: text}
}
