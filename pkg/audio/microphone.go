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
	// How many captured hardware buffers may sit between the driver callback
	// and the host's pull before the callback starts dropping.
	captureQueueDepth = 16

	// How long a pull waits for a captured buffer before reporting no update.
	capturePullTimeout = time.Second
)

// A Microphone captures audio from the default input device and produces one
// AudioFrame per hardware buffer. The driver invokes the capture callback on
// its own thread; the callback hands each buffer to a bounded queue and
// returns immediately. The host pulls frames through ProcessUpdate, which
// waits at most capturePullTimeout before reporting no update.
type Microphone struct {
	logger *slog.Logger
	uuid   uuid.UUID

	frameLength float64
	chunkSize   int
	sampleRate  int
	sampleWidth int

	// Applied to each captured buffer on the driver thread, if set.
	// The push-to-talk decorator installs its gate here.
	gate func(raw []byte) []byte

	captured      chan []byte
	stream        *portaudio.Stream
	paInitialized bool
}

// NewMicrophone configures a capture source producing frames of frameLength
// seconds at the given sample rate. Only 16-bit PCM (sampleWidth 2) is
// supported by the device layer; Setup rejects anything else.
func NewMicrophone(frameLength float64, sampleRate int, sampleWidth int) *Microphone {
	uuid := uuid.New()
	logger := slog.Default().With(
		"microphone uuid", uuid,
	)
	return &Microphone{
		logger:      logger,
		uuid:        uuid,
		frameLength: frameLength,
		chunkSize:   chunkSamples(sampleRate, frameLength),
		sampleRate:  sampleRate,
		sampleWidth: sampleWidth,
		captured:    make(chan []byte, captureQueueDepth),
	}
}

// ChunkSize returns the number of samples per captured frame.
func (m *Microphone) ChunkSize() int { return m.chunkSize }

// Setup opens the input stream. A device-open failure is fatal and is not
// retried.
func (m *Microphone) Setup() error {
	if m.sampleWidth != 2 {
		return fmt.Errorf("microphone supports 16-bit PCM only, got sample width %d", m.sampleWidth)
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	m.paInitialized = true

	stream, err := portaudio.OpenDefaultStream(
		frame.NumChannels, 0,
		float64(m.sampleRate), m.chunkSize,
		m.callback,
	)
	if err != nil {
		m.logger.Error("could not open capture stream", "err", err)
		portaudio.Terminate()
		m.paInitialized = false
		return fmt.Errorf("opening capture stream: %w", err)
	}
	m.stream = stream

	m.logger.Debug(
		"opened capture stream",
		"sampleRate", m.sampleRate,
		"chunkSize", m.chunkSize,
	)
	return nil
}

// callback runs on the PortAudio driver thread once per ready hardware
// buffer. It must not block: a full queue drops the buffer.
func (m *Microphone) callback(in []int16) {
	raw := pcmBytes(in)
	if len(raw) != m.chunkSize*m.sampleWidth {
		// Undersized driver buffers are zero-padded to keep the frame
		// length invariant; oversized ones are truncated.
		exact := make([]byte, m.chunkSize*m.sampleWidth)
		copy(exact, raw)
		raw = exact
	}
	if m.gate != nil {
		raw = m.gate(raw)
	}

	select {
	case m.captured <- raw:
	default:
		// The host has fallen behind. Dropping here keeps the driver
		// thread's latency bounded.
	}
}

// PrepareRun starts the capture stream.
func (m *Microphone) PrepareRun() error {
	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("starting capture stream: %w", err)
	}
	return nil
}

// ProcessUpdate dequeues one captured buffer and returns it as a single ADD
// update. A queue-empty timeout is an expected transient and yields a nil
// message, never an error.
func (m *Microphone) ProcessUpdate(_ pipeline.UpdateMessage) (pipeline.UpdateMessage, error) {
	timer := time.NewTimer(capturePullTimeout)
	defer timer.Stop()

	select {
	case raw := <-m.captured:
		f, err := frame.NewAudioFrame(raw, m.chunkSize, m.sampleRate, m.sampleWidth)
		if err != nil {
			return nil, err
		}
		return pipeline.MessageFromFrame(f, pipeline.Add), nil
	case <-timer.C:
		return nil, nil
	}
}

// Shutdown stops and closes the capture stream and resets the queue.
func (m *Microphone) Shutdown() error {
	var errs []error
	if m.stream != nil {
		if err := m.stream.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := m.stream.Close(); err != nil {
			errs = append(errs, err)
		}
		m.stream = nil
	}
	if m.paInitialized {
		if err := portaudio.Terminate(); err != nil {
			errs = append(errs, err)
		}
		m.paInitialized = false
	}
	m.captured = make(chan []byte, captureQueueDepth)
	return errors.Join(errs...)
}
