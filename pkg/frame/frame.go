package frame

import (
	"fmt"
	"time"
)

// NumChannels is the number of audio channels carried by every frame.
// The pipeline is hard coded to mono; stereo would have to be threaded
// through every component, not just here.
const NumChannels = 1

// Frame is implemented by every frame type exchanged between modules.
// Consumers type-assert to the concrete type they handle.
type Frame interface {
	Audio() AudioFrame
}

// An AudioFrame is one chunk of raw PCM audio plus the metadata needed to
// interpret it. Frames are immutable once constructed: ownership moves
// across queue boundaries and the payload is never written to concurrently.
type AudioFrame struct {
	// Raw little-endian PCM samples. Always NFrames * SampleWidth bytes.
	RawAudio []byte

	// Samples per second of the contained audio.
	SampleRate int

	// Number of samples in RawAudio.
	NFrames int

	// Bytes per sample.
	SampleWidth int
}

// Construct an AudioFrame, enforcing the length invariant
// len(raw) == nframes * sampleWidth.
func NewAudioFrame(raw []byte, nframes int, sampleRate int, sampleWidth int) (AudioFrame, error) {
	if len(raw) != nframes*sampleWidth {
		return AudioFrame{}, fmt.Errorf(
			"audio frame payload is %d bytes, want %d (nframes %d * sample width %d)",
			len(raw), nframes*sampleWidth, nframes, sampleWidth,
		)
	}
	return AudioFrame{
		RawAudio:    raw,
		SampleRate:  sampleRate,
		NFrames:     nframes,
		SampleWidth: sampleWidth,
	}, nil
}

// Silence returns a frame of nframes all-zero samples.
func Silence(nframes int, sampleRate int, sampleWidth int) AudioFrame {
	return AudioFrame{
		RawAudio:    make([]byte, nframes*sampleWidth),
		SampleRate:  sampleRate,
		NFrames:     nframes,
		SampleWidth: sampleWidth,
	}
}

// Audio returns the frame itself, satisfying the Frame interface for
// AudioFrame and every type embedding it.
func (f AudioFrame) Audio() AudioFrame { return f }

// Duration of the contained audio.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(f.NFrames) / float64(f.SampleRate) * float64(time.Second))
}

// An UtteranceFrame carries a complete (arbitrarily large) utterance, e.g.
// one synthesized TTS response, together with the producer's intent:
// Dispatch true asks the dispatcher to start streaming this audio,
// Dispatch false asks it to stop whatever it is currently streaming.
type UtteranceFrame struct {
	AudioFrame

	Dispatch bool
}

// A DispatchedFrame is one fixed-size slice of an utterance emitted by the
// dispatcher at real-time pace. Completion and IsDispatching let downstream
// consumers (e.g. a dialogue manager) track playback progress.
type DispatchedFrame struct {
	AudioFrame

	// Fraction of the source utterance played once this frame is consumed,
	// in [0, 1]. Silence frames carry 0.
	Completion float64

	// Whether the dispatcher was streaming an utterance when this frame was
	// produced. False marks continuous-mode silence.
	IsDispatching bool
}
