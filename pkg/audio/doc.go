// Package audio implements the capture, playback, persistence and dispatch
// components of the incremental audio pipeline.
//
// All components exchange mono PCM audio as frames (see pkg/frame) and
// implement the pipeline.Module lifecycle: Setup opens device or file
// resources, PrepareRun starts streams and worker goroutines, Shutdown stops
// them and releases resources. Device I/O goes through PortAudio; driver
// callbacks run on PortAudio's own threads and never block, bridging to the
// host's processing thread through bounded queues with explicit timeouts.
package audio
