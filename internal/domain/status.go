// Package domain contains session entities without transport logic.
package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the connection state of a voice session.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusLive
	StatusError
)

var statusNames = [...]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusLive:         "live",
	StatusError:        "error",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Active reports whether the session owns a connection attempt or a live connection.
func (s Status) Active() bool {
	return s == StatusConnecting || s == StatusLive
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range statusNames {
		if n == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", name)
}
