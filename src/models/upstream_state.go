package models

// UpstreamState drives the reconnection supervisor.
type UpstreamState int32

const (
	Disconnected UpstreamState = iota
	Connecting
	Connected
)

func (s UpstreamState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}
