package transcript

import (
	"errors"
	"testing"

	"github.com/dkeye/VoiceTwin/internal/domain"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Event
	}{
		{
			name:  "user transcript",
			input: `{"type":"conversation.item.input_audio_transcription.completed","item_id":"item_1","transcript":"hi there"}`,
			want:  Event{Type: EventUserTranscript, Text: "hi there", ItemID: "item_1"},
		},
		{
			name:  "assistant delta",
			input: `{"type":"response.audio_transcript.delta","delta":"Hel"}`,
			want:  Event{Type: EventAssistantDelta, Text: "Hel"},
		},
		{
			name:  "assistant done",
			input: `{"type":"response.audio_transcript.done","transcript":"Hello there"}`,
			want:  Event{Type: EventAssistantDone, Text: "Hello there"},
		},
		{
			name:  "empty delta is still a delta",
			input: `{"type":"response.audio_transcript.delta","delta":""}`,
			want:  Event{Type: EventAssistantDelta, Text: ""},
		},
		{
			name:  "output audio alias",
			input: `{"type":"response.output_audio_transcript.delta","delta":"lo"}`,
			want:  Event{Type: EventAssistantDelta, Text: "lo"},
		},
		{
			name:  "error",
			input: `{"type":"error","error":{"type":"invalid_request_error","message":"bad session"}}`,
			want:  Event{Type: EventError, Text: "bad session"},
		},
	}

	for _, tt := range tests {
		got, err := Decode([]byte(tt.input))
		if err != nil {
			t.Errorf("%s: Decode error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: Decode = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"session.created","session":{}}`))
	if !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("err = %v, want ErrUnknownEvent", err)
	}
	if errors.Is(err, domain.ErrProtocol) {
		t.Fatal("unknown events must not be protocol errors")
	}
}

func TestDecodeMalformed(t *testing.T) {
	inputs := []string{
		`not json`,
		`{"transcript":"no type"}`,
		`{"type":"response.audio_transcript.delta"}`,
		`{"type":"response.audio_transcript.done","delta":"x"}`,
		`{"type":"conversation.item.input_audio_transcription.completed"}`,
		`{"type":"error"}`,
		`{"type":"error","error":{}}`,
		`{"type":"response.audio_transcript.delta","delta":42}`,
	}
	for _, in := range inputs {
		_, err := Decode([]byte(in))
		if !errors.Is(err, domain.ErrProtocol) {
			t.Errorf("Decode(%s) err = %v, want protocol error", in, err)
		}
	}
}
