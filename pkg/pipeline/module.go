package pipeline

// A Module is one processing component in the pipeline. The host calls the
// lifecycle hooks exactly once each, in order: Setup (open device or file
// resources), PrepareRun (start streams and worker goroutines), Shutdown
// (stop streams and goroutines, release resources).
//
// ProcessUpdate is called from the host's processing thread with an ordered
// sequence of (frame, operation) pairs. It returns either nil ("no update")
// or a new sequence of updates to propagate downstream. Implementations must
// not block beyond their documented timeouts.
type Module interface {
	Setup() error
	PrepareRun() error
	Shutdown() error

	ProcessUpdate(UpdateMessage) (UpdateMessage, error)
}

// A Producer is a module that additionally emits update messages
// asynchronously, from its own worker goroutine, on the returned channel.
// The channel is closed on Shutdown.
type Producer interface {
	Module

	Output() <-chan UpdateMessage
}
