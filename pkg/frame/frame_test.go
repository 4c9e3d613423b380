package frame

import (
	"testing"
	"time"
)

func TestNewAudioFrameEnforcesLengthInvariant(t *testing.T) {
	tests := []struct {
		name        string
		rawLen      int
		nframes     int
		sampleWidth int
		wantErr     bool
	}{
		{"exact", 640, 320, 2, false},
		{"empty", 0, 0, 2, false},
		{"short payload", 639, 320, 2, true},
		{"long payload", 641, 320, 2, true},
		{"wrong width", 320, 320, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAudioFrame(make([]byte, tt.rawLen), tt.nframes, 16000, tt.sampleWidth)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAudioFrame err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSilence(t *testing.T) {
	f := Silence(320, 16000, 2)
	if f.NFrames != 320 || len(f.RawAudio) != 640 {
		t.Fatalf("silence frame: %d samples, %d bytes", f.NFrames, len(f.RawAudio))
	}
	for i, b := range f.RawAudio {
		if b != 0 {
			t.Fatalf("silence byte %d = %d", i, b)
		}
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		nframes    int
		sampleRate int
		want       time.Duration
	}{
		{320, 16000, 20 * time.Millisecond},
		{882, 44100, 20 * time.Millisecond},
		{16000, 16000, time.Second},
		{0, 16000, 0},
		{100, 0, 0},
	}
	for _, tt := range tests {
		f := Silence(tt.nframes, tt.sampleRate, 2)
		if got := f.Duration(); got != tt.want {
			t.Errorf("Duration(%d frames @ %d Hz) = %v, want %v", tt.nframes, tt.sampleRate, got, tt.want)
		}
	}
}

func TestFrameInterfacePromotion(t *testing.T) {
	af := Silence(10, 16000, 2)
	var frames []Frame = []Frame{
		af,
		UtteranceFrame{AudioFrame: af, Dispatch: true},
		DispatchedFrame{AudioFrame: af, Completion: 0.5, IsDispatching: true},
	}
	for i, f := range frames {
		if f.Audio().NFrames != 10 {
			t.Errorf("frame %d Audio().NFrames = %d, want 10", i, f.Audio().NFrames)
		}
	}
}
