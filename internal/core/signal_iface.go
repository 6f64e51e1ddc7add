package core

// Frame is a raw payload for a feed subscriber.
type Frame []byte

// SignalConnection abstracts a subscriber's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
