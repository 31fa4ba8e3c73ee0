package telnet

import "fmt"

// State is the connection state of a Manager.
type State int32

// Session states. A session cycles Disconnected → Connecting →
// Authenticating → Active and drops back to Disconnected on any
// recoverable failure.
const (
	Disconnected State = iota
	Connecting
	Authenticating
	Active
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
