package pipeline

import "github.com/incremental-systems/dialogio/pkg/frame"

// UpdateType describes the operation applied to a frame in an update message.
type UpdateType int

const (
	// Add introduces a new frame to the stream.
	Add UpdateType = iota
	// Revoke retracts a previously added frame.
	Revoke
	// Commit marks a previously added frame as final.
	Commit
)

func (t UpdateType) String() string {
	switch t {
	case Add:
		return "add"
	case Revoke:
		return "revoke"
	case Commit:
		return "commit"
	default:
		return "unknown"
	}
}

// An Update pairs one frame with the operation applied to it.
type Update struct {
	Frame frame.Frame
	Op    UpdateType
}

// An UpdateMessage is an ordered sequence of updates passed between modules.
// A nil message means "no update".
type UpdateMessage []Update

// MessageFromFrame wraps a single frame and operation into an update message.
func MessageFromFrame(f frame.Frame, op UpdateType) UpdateMessage {
	return UpdateMessage{{Frame: f, Op: op}}
}
