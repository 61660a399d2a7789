package rosbridge

// Lifecycle state of a Connection.
type State int

const (
	// Connection has not been opened yet or has been interrupted by the server
	Idle State = iota
	// Websocket handshake is in progress
	Connecting
	// Connection is open: frames are sent and received
	Open
	// Connection is being torn down
	Closing
	// Connection has been disconnected. Terminal state.
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
