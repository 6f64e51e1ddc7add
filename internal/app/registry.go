// Package app holds the feed subscriber registry shared by the session manager and the UI feed.
package app

import (
	"sync"

	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ClientID string
	Conn     core.SignalConnection
}

// Registry tracks UI feed subscribers.
type Registry struct {
	mu     sync.RWMutex
	subs   map[core.SessionID]*subscriber
	policy Policy
}

func NewRegistry(policy Policy) *Registry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Registry{
		subs:   make(map[core.SessionID]*subscriber),
		policy: policy,
	}
}

func (r *Registry) Subscribe(id core.SessionID, clientID string, conn core.SignalConnection) {
	r.mu.Lock()
	old, ok := r.subs[id]
	r.subs[id] = &subscriber{ClientID: clientID, Conn: conn}
	r.mu.Unlock()
	if ok && old.Conn != conn {
		old.Conn.Close()
	}
	log.Info().Str("module", "app.registry").Str("feed_id", string(id)).Str("client", clientID).Msg("subscribed")
}

func (r *Registry) Unsubscribe(id core.SessionID) {
	r.mu.Lock()
	_, ok := r.subs[id]
	delete(r.subs, id)
	r.mu.Unlock()
	if ok {
		log.Info().Str("module", "app.registry").Str("feed_id", string(id)).Msg("unsubscribed")
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

type PublishResult struct {
	SentTo  int
	Dropped int
	Kicked  []core.SessionID
}

// Broadcast offers frame to every subscriber without blocking.
// Subscribers that cannot take it are handled by the policy.
func (r *Registry) Broadcast(frame core.Frame) PublishResult {
	r.mu.RLock()
	snapshot := make(map[core.SessionID]*subscriber, len(r.subs))
	for id, s := range r.subs {
		snapshot[id] = s
	}
	r.mu.RUnlock()

	var res PublishResult
	for id, s := range snapshot {
		if err := s.Conn.TrySend(frame); err != nil {
			switch r.policy.OnBackPressure(id) {
			case KickSubscriber:
				res.Kicked = append(res.Kicked, id)
			case DropFrame, NoAction:
				res.Dropped++
			}
			continue
		}
		res.SentTo++
	}

	for _, id := range res.Kicked {
		r.kick(id, snapshot[id])
	}
	return res
}

func (r *Registry) kick(id core.SessionID, s *subscriber) {
	r.mu.Lock()
	if cur, ok := r.subs[id]; ok && cur == s {
		delete(r.subs, id)
	}
	r.mu.Unlock()
	s.Conn.Close()
	log.Warn().Str("module", "app.registry").Str("feed_id", string(id)).Msg("kicked slow subscriber")
}
