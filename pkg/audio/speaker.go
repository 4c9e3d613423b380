package audio

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"

	"github.com/incremental-systems/dialogio/pkg/pipeline"
)

// RouteMode selects which physical output channel carries the mono signal.
type RouteMode int

const (
	// RouteBoth plays the mono signal on all speakers (default).
	RouteBoth RouteMode = iota
	// RouteLeft plays on the left channel only, right is silent.
	RouteLeft
	// RouteRight plays on the right channel only, left is silent.
	RouteRight
)

func (r RouteMode) String() string {
	switch r {
	case RouteBoth:
		return "both"
	case RouteLeft:
		return "left"
	case RouteRight:
		return "right"
	default:
		return "unknown"
	}
}

// ParseRouteMode converts a config string to a RouteMode.
func ParseRouteMode(s string) (RouteMode, error) {
	switch s {
	case "both", "":
		return RouteBoth, nil
	case "left":
		return RouteLeft, nil
	case "right":
		return RouteRight, nil
	default:
		return RouteBoth, fmt.Errorf("unknown route mode %q", s)
	}
}

// Samples per blocking write. Small enough to keep Shutdown's zero-padded
// flush inaudible, large enough not to thrash the device.
const speakerWriteChunk = 1024

// A Speaker consumes frames of arbitrary size and plays them through the
// default output device using blocking writes: ProcessUpdate does not return
// until the device has accepted the frame's audio, which takes roughly the
// frame's playback duration. That blocking is the backpressure mechanism.
//
// Frames are staged into fixed write chunks; a trailing partial chunk is
// carried over to the next frame and flushed, zero-padded, on Shutdown.
type Speaker struct {
	logger *slog.Logger
	uuid   uuid.UUID

	sampleRate  int
	sampleWidth int
	route       RouteMode

	numChannels int
	writeBuf    []int16
	pending     []int16

	stream        *portaudio.Stream
	paInitialized bool
}

// NewSpeaker configures a blocking playback sink. The route mode places the
// mono signal on the left, right or both output channels.
func NewSpeaker(sampleRate int, sampleWidth int, route RouteMode) *Speaker {
	uuid := uuid.New()
	logger := slog.Default().With(
		"speaker uuid", uuid,
	)
	return &Speaker{
		logger:      logger,
		uuid:        uuid,
		sampleRate:  sampleRate,
		sampleWidth: sampleWidth,
		route:       route,
	}
}

// Setup opens the output stream in blocking-write mode.
func (s *Speaker) Setup() error {
	if s.sampleWidth != 2 {
		return fmt.Errorf("speaker supports 16-bit PCM only, got sample width %d", s.sampleWidth)
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	s.paInitialized = true

	// Sub-channel routing needs an explicit stereo stream; the plain mono
	// stream lets the device mix to all speakers.
	s.numChannels = 1
	if s.route != RouteBoth {
		s.numChannels = 2
	}
	s.writeBuf = make([]int16, speakerWriteChunk*s.numChannels)

	stream, err := portaudio.OpenDefaultStream(
		0, s.numChannels,
		float64(s.sampleRate), speakerWriteChunk,
		&s.writeBuf,
	)
	if err != nil {
		s.logger.Error("could not open playback stream", "err", err)
		portaudio.Terminate()
		s.paInitialized = false
		return fmt.Errorf("opening playback stream: %w", err)
	}
	s.stream = stream

	s.logger.Debug(
		"opened playback stream",
		"sampleRate", s.sampleRate,
		"route", s.route.String(),
	)
	return nil
}

// PrepareRun starts the playback stream.
func (s *Speaker) PrepareRun() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("starting playback stream: %w", err)
	}
	return nil
}

// ProcessUpdate writes each added frame to the device, blocking until the
// device accepts the data.
func (s *Speaker) ProcessUpdate(msg pipeline.UpdateMessage) (pipeline.UpdateMessage, error) {
	for _, u := range msg {
		if u.Op != pipeline.Add {
			continue
		}
		af := u.Frame.Audio()

		samples := make([]int16, af.NFrames)
		pcmSamples(af.RawAudio, samples)
		s.pending = append(s.pending, samples...)

		for len(s.pending) >= speakerWriteChunk {
			if err := s.writeChunk(s.pending[:speakerWriteChunk]); err != nil {
				return nil, err
			}
			s.pending = s.pending[speakerWriteChunk:]
		}
	}
	return nil, nil
}

// routeChunk fills the device buffer from one mono chunk according to the
// route mode, interleaving for the stereo routes.
func (s *Speaker) routeChunk(mono []int16) {
	switch s.route {
	case RouteLeft:
		for i, v := range mono {
			s.writeBuf[2*i] = v
			s.writeBuf[2*i+1] = 0
		}
	case RouteRight:
		for i, v := range mono {
			s.writeBuf[2*i] = 0
			s.writeBuf[2*i+1] = v
		}
	default:
		copy(s.writeBuf, mono)
	}
}

// writeChunk routes one mono chunk into the device buffer and blocks on the
// device write.
func (s *Speaker) writeChunk(mono []int16) error {
	s.routeChunk(mono)
	if err := s.stream.Write(); err != nil {
		s.logger.Error("playback write failed", "err", err)
		return fmt.Errorf("writing to playback stream: %w", err)
	}
	return nil
}

// Shutdown flushes the trailing partial chunk (zero-padded) and closes the
// stream.
func (s *Speaker) Shutdown() error {
	var errs []error
	if s.stream != nil {
		if len(s.pending) > 0 {
			tail := make([]int16, speakerWriteChunk)
			copy(tail, s.pending)
			if err := s.writeChunk(tail); err != nil {
				errs = append(errs, err)
			}
			s.pending = nil
		}
		if err := s.stream.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := s.stream.Close(); err != nil {
			errs = append(errs, err)
		}
		s.stream = nil
	}
	if s.paInitialized {
		if err := portaudio.Terminate(); err != nil {
			errs = append(errs, err)
		}
		s.paInitialized = false
	}
	return errors.Join(errs...)
}
