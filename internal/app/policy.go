package app

import "github.com/dkeye/VoiceTwin/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickSubscriber
)

// Policy decides what happens to a subscriber whose send buffer is full.
type Policy interface {
	OnBackPressure(id core.SessionID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.SessionID) BackpressureAction {
	return KickSubscriber
}
