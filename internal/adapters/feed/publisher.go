package feed

import (
	"encoding/json"

	"github.com/dkeye/VoiceTwin/internal/app"
	"github.com/dkeye/VoiceTwin/internal/app/orch"
	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/rs/zerolog/log"
)

type stateMessage struct {
	Type string `json:"type"`
	orch.Snapshot
}

func EncodeState(s orch.Snapshot) (core.Frame, error) {
	return json.Marshal(stateMessage{Type: "session_state", Snapshot: s})
}

// Publisher broadcasts session snapshots to every feed subscriber.
// It implements orch.Publisher.
type Publisher struct {
	Registry *app.Registry
}

func (p Publisher) Publish(s orch.Snapshot) {
	frame, err := EncodeState(s)
	if err != nil {
		log.Error().Str("module", "feed").Err(err).Msg("encode state")
		return
	}
	res := p.Registry.Broadcast(frame)
	if len(res.Kicked) > 0 || res.Dropped > 0 {
		log.Debug().
			Str("module", "feed").
			Int("sent", res.SentTo).
			Int("dropped", res.Dropped).
			Int("kicked", len(res.Kicked)).
			Msg("state broadcast under backpressure")
	}
}

var _ orch.Publisher = Publisher{}
