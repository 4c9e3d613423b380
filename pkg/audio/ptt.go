package audio

import "sync/atomic"

// A MicrophonePTT is a push-to-talk gate over a Microphone: captured buffers
// are forwarded only while the gate key is held. While the key is up, each
// buffer is replaced with explicit silence of identical size, so downstream
// consumers keep receiving frames at the capture cadence.
//
// The gate is sampled exactly once per hardware callback, so a key toggle
// takes effect on the next buffer, never mid-buffer. Key event delivery is
// the embedding application's job: whatever input layer it uses calls Press
// and Release.
type MicrophonePTT struct {
	*Microphone

	key     string
	engaged atomic.Bool
}

// NewMicrophonePTT wraps a capture source with a push-to-talk gate bound to
// the named key.
func NewMicrophonePTT(key string, frameLength float64, sampleRate int, sampleWidth int) *MicrophonePTT {
	m := NewMicrophone(frameLength, sampleRate, sampleWidth)
	p := &MicrophonePTT{
		Microphone: m,
		key:        key,
	}
	m.gate = p.gateBuffer
	return p
}

// gateBuffer runs on the driver thread, once per captured buffer.
func (p *MicrophonePTT) gateBuffer(raw []byte) []byte {
	if p.engaged.Load() {
		return raw
	}
	return make([]byte, len(raw))
}

// Press engages the gate: subsequent buffers pass through.
func (p *MicrophonePTT) Press() { p.engaged.Store(true) }

// Release disengages the gate: subsequent buffers become silence.
func (p *MicrophonePTT) Release() { p.engaged.Store(false) }

// Engaged reports whether the gate key is currently held.
func (p *MicrophonePTT) Engaged() bool { return p.engaged.Load() }

// Key returns the key this gate is bound to.
func (p *MicrophonePTT) Key() string { return p.key }
