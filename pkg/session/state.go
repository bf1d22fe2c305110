package session

import "fmt"

// State is the lifecycle state of a streaming session.
type State int

const (
	// StateIdle means no session is running or the last one was cleared.
	StateIdle State = iota

	// StateConnecting means the request is being opened.
	StateConnecting

	// StateStreaming means at least one byte of the response has arrived.
	StateStreaming

	// StateCompleted means the stream ended normally.
	StateCompleted

	// StateErrored means the transport failed or the server reported an error.
	StateErrored

	// StateAborted means the session was cancelled.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Active reports whether the state belongs to a running session.
func (s State) Active() bool {
	return s == StateConnecting || s == StateStreaming
}

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateAborted
}

// Status is the human readable status line for the state.
func (s State) Status() string {
	switch s {
	case StateConnecting:
		return "Connecting..."
	case StateStreaming:
		return "Streaming..."
	case StateCompleted:
		return "Stream completed"
	case StateErrored:
		return "Error occurred"
	case StateAborted:
		return "Stream stopped"
	default:
		return ""
	}
}
