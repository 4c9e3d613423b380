package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"

	"github.com/incremental-systems/dialogio/pkg/frame"
	"github.com/incremental-systems/dialogio/pkg/pipeline"
)

const (
	// How long the driver callback waits for a queued frame before
	// synthesizing silence.
	playbackPullTimeout = 10 * time.Millisecond

	// Pushed frames buffered between the host and the driver callback.
	playbackQueueDepth = 64
)

// A StreamingSpeaker consumes fixed-size frames and plays them through the
// default output device in callback-pull mode. Pushed frames land on an
// internal queue; the driver-invoked callback pops one buffer with a 10 ms
// timeout and fills the device buffer with silence on timeout, so the stream
// never underruns.
//
// Every pushed frame must hold exactly ChunkSize samples; this component
// does not re-chunk. The dispatcher is responsible for producing exactly
// sized slices.
type StreamingSpeaker struct {
	logger *slog.Logger
	uuid   uuid.UUID

	frameLength float64
	chunkSize   int
	sampleRate  int
	sampleWidth int

	queue         chan []byte
	stream        *portaudio.Stream
	paInitialized bool
}

// NewStreamingSpeaker configures a streaming playback sink expecting frames
// of frameLength seconds at the given sample rate.
func NewStreamingSpeaker(frameLength float64, sampleRate int, sampleWidth int) *StreamingSpeaker {
	uuid := uuid.New()
	logger := slog.Default().With(
		"streaming speaker uuid", uuid,
	)
	return &StreamingSpeaker{
		logger:      logger,
		uuid:        uuid,
		frameLength: frameLength,
		chunkSize:   chunkSamples(sampleRate, frameLength),
		sampleRate:  sampleRate,
		sampleWidth: sampleWidth,
		queue:       make(chan []byte, playbackQueueDepth),
	}
}

// ChunkSize returns the exact number of samples each pushed frame must hold.
func (s *StreamingSpeaker) ChunkSize() int { return s.chunkSize }

// Setup opens the output stream in callback-pull mode with a fixed buffer of
// ChunkSize samples.
func (s *StreamingSpeaker) Setup() error {
	if s.sampleWidth != 2 {
		return fmt.Errorf("streaming speaker supports 16-bit PCM only, got sample width %d", s.sampleWidth)
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	s.paInitialized = true

	stream, err := portaudio.OpenDefaultStream(
		0, frame.NumChannels,
		float64(s.sampleRate), s.chunkSize,
		s.callback,
	)
	if err != nil {
		s.logger.Error("could not open streaming playback stream", "err", err)
		portaudio.Terminate()
		s.paInitialized = false
		return fmt.Errorf("opening streaming playback stream: %w", err)
	}
	s.stream = stream

	s.logger.Debug(
		"opened streaming playback stream",
		"sampleRate", s.sampleRate,
		"chunkSize", s.chunkSize,
	)
	return nil
}

// callback runs on the PortAudio driver thread once per device buffer. It
// fills out from the queue, or with silence when nothing arrives within the
// pull timeout, keeping callback latency bounded.
func (s *StreamingSpeaker) callback(out []int16) {
	select {
	case raw := <-s.queue:
		pcmSamples(raw, out)
	case <-time.After(playbackPullTimeout):
		for i := range out {
			out[i] = 0
		}
	}
}

// PrepareRun starts the playback stream.
func (s *StreamingSpeaker) PrepareRun() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("starting streaming playback stream: %w", err)
	}
	return nil
}

// ProcessUpdate enqueues each added frame for the driver callback. If the
// queue is full the frame is dropped with a warning rather than blocking the
// host's processing thread.
func (s *StreamingSpeaker) ProcessUpdate(msg pipeline.UpdateMessage) (pipeline.UpdateMessage, error) {
	for _, u := range msg {
		if u.Op != pipeline.Add {
			continue
		}
		af := u.Frame.Audio()
		if af.NFrames != s.chunkSize {
			s.logger.Warn(
				"pushed frame does not match chunk size",
				"frameSamples", af.NFrames,
				"chunkSize", s.chunkSize,
			)
		}
		select {
		case s.queue <- af.RawAudio:
		default:
			s.logger.Warn("playback queue full, dropping frame")
		}
	}
	return nil, nil
}

// Shutdown stops and closes the playback stream and resets the queue.
func (s *StreamingSpeaker) Shutdown() error {
	var errs []error
	if s.stream != nil {
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
	s.queue = make(chan []byte, playbackQueueDepth)
	return errors.Join(errs...)
}
