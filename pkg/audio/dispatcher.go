package audio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/incremental-systems/dialogio/pkg/frame"
	"github.com/incremental-systems/dialogio/pkg/pipeline"
)

// Emitted frames buffered towards the host. If the host stops draining, the
// timing goroutine drops frames rather than stalling the pace.
const dispatchOutputDepth = 256

type dispatchState int

const (
	stateIdle dispatchState = iota
	stateDispatching
)

// DispatcherConfig holds the tuning parameters of a Dispatcher.
type DispatcherConfig struct {
	// Length of each emitted slice in seconds.
	TargetFrameLength float64

	SampleRate  int
	SampleWidth int

	// Pacing factor: 1.0 emits at real-time pace, larger is faster.
	Speed float64

	// With Continuous set, silence frames are emitted while idle to keep
	// downstream cadence steady. Otherwise nothing is emitted while idle.
	Continuous bool

	// With Interrupt set, a new utterance preempts the one currently being
	// dispatched. Otherwise pending slices finish before the new utterance
	// starts. An utterance with Dispatch false always stops dispatching,
	// regardless of this flag.
	Interrupt bool

	// Optional custom silence payload of exactly one slice. Defaults to all
	// zeros.
	Silence []byte
}

// A Dispatcher slices arbitrarily large utterance buffers into fixed-size
// frames and emits them at real-time pace from a dedicated timing goroutine.
//
// Incoming UtteranceFrames move the state machine between idle and
// dispatching; the slice buffer and state are guarded by one mutex, released
// before the pacing sleep so ProcessUpdate is never blocked longer than the
// critical section.
type Dispatcher struct {
	logger *slog.Logger
	uuid   uuid.UUID

	targetFrameLength float64
	targetChunkSize   int
	sampleRate        int
	sampleWidth       int
	speed             float64
	continuous        bool
	interrupt         bool
	silence           []byte

	mu     sync.Mutex
	state  dispatchState
	buffer []frame.DispatchedFrame

	out          chan pipeline.UpdateMessage
	stop         chan struct{}
	loopWg       sync.WaitGroup
	shutdownOnce sync.Once
}

// NewDispatcher configures a dispatcher. A non-positive Speed defaults to
// real time.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	uuid := uuid.New()
	logger := slog.Default().With(
		"dispatcher uuid", uuid,
	)

	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	targetChunkSize := chunkSamples(cfg.SampleRate, cfg.TargetFrameLength)
	silence := cfg.Silence
	if len(silence) == 0 {
		silence = make([]byte, targetChunkSize*cfg.SampleWidth)
	}

	return &Dispatcher{
		logger:            logger,
		uuid:              uuid,
		targetFrameLength: cfg.TargetFrameLength,
		targetChunkSize:   targetChunkSize,
		sampleRate:        cfg.SampleRate,
		sampleWidth:       cfg.SampleWidth,
		speed:             cfg.Speed,
		continuous:        cfg.Continuous,
		interrupt:         cfg.Interrupt,
		silence:           silence,
		state:             stateIdle,
		out:               make(chan pipeline.UpdateMessage, dispatchOutputDepth),
		stop:              make(chan struct{}),
	}
}

// TargetChunkSize returns the number of samples per emitted slice.
func (d *Dispatcher) TargetChunkSize() int { return d.targetChunkSize }

// IsDispatching reports whether an utterance is currently being dispatched.
func (d *Dispatcher) IsDispatching() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == stateDispatching
}

// Output returns the channel on which paced slices are emitted as ADD
// updates. Closed on Shutdown.
func (d *Dispatcher) Output() <-chan pipeline.UpdateMessage {
	return d.out
}

func (d *Dispatcher) Setup() error { return nil }

// PrepareRun starts the timing goroutine.
func (d *Dispatcher) PrepareRun() error {
	d.loopWg.Add(1)
	go d.dispatchLoop()
	return nil
}

// ProcessUpdate consumes UtteranceFrames. An utterance with Dispatch false,
// or any utterance in interrupt mode, first discards the pending buffer and
// stops dispatching. An utterance with Dispatch true is then sliced and
// appended: behind nothing if the buffer was just cleared, behind pending
// slices otherwise (finish-then-play-next).
func (d *Dispatcher) ProcessUpdate(msg pipeline.UpdateMessage) (pipeline.UpdateMessage, error) {
	for _, upd := range msg {
		if upd.Op != pipeline.Add {
			continue
		}
		u, ok := upd.Frame.(frame.UtteranceFrame)
		if !ok {
			continue
		}

		d.mu.Lock()
		if d.interrupt || !u.Dispatch {
			d.state = stateIdle
			d.buffer = nil
		}
		if u.Dispatch {
			d.buffer = append(d.buffer, d.sliceUtterance(u)...)
			// A zero-frame utterance produces zero slices and leaves the
			// state untouched.
			if len(d.buffer) > 0 {
				d.state = stateDispatching
			}
		}
		d.mu.Unlock()
	}
	return nil, nil
}

// sliceUtterance cuts the utterance payload into ordered slices of exactly
// targetChunkSize samples, zero-padding the final slice, each carrying its
// completion fraction.
func (d *Dispatcher) sliceUtterance(u frame.UtteranceFrame) []frame.DispatchedFrame {
	sliceBytes := d.targetChunkSize * d.sampleWidth
	var slices []frame.DispatchedFrame
	for i := 0; i < u.NFrames; i += d.targetChunkSize {
		start := i * d.sampleWidth
		end := start + sliceBytes
		if end > len(u.RawAudio) {
			end = len(u.RawAudio)
		}
		data := make([]byte, sliceBytes)
		copy(data, u.RawAudio[start:end])

		completion := float64(i+d.targetChunkSize) / float64(u.NFrames)
		if completion > 1 {
			completion = 1
		}

		slices = append(slices, frame.DispatchedFrame{
			AudioFrame: frame.AudioFrame{
				RawAudio:    data,
				SampleRate:  d.sampleRate,
				NFrames:     d.targetChunkSize,
				SampleWidth: d.sampleWidth,
			},
			Completion:    completion,
			IsDispatching: true,
		})
	}
	return slices
}

// dispatchLoop is the timing goroutine: one slice (or silence frame) per
// tick, paced by the slice's real-time duration divided by speed. The pacing
// comes from this sleep, not from queue depth.
func (d *Dispatcher) dispatchLoop() {
	defer d.loopWg.Done()

	pace := time.Duration(
		float64(d.targetChunkSize) / float64(d.sampleRate) / d.speed * float64(time.Second),
	)

	for {
		select {
		case <-d.stop:
			return
		default:
		}

		d.mu.Lock()
		var emit *frame.DispatchedFrame
		if d.state == stateDispatching {
			if len(d.buffer) > 0 {
				f := d.buffer[0]
				d.buffer = d.buffer[1:]
				emit = &f
			} else {
				// Utterance finished. No silence on this tick even in
				// continuous mode.
				d.state = stateIdle
			}
		} else if d.continuous {
			f := frame.DispatchedFrame{
				AudioFrame: frame.AudioFrame{
					RawAudio:    d.silence,
					SampleRate:  d.sampleRate,
					NFrames:     d.targetChunkSize,
					SampleWidth: d.sampleWidth,
				},
				Completion:    0.0,
				IsDispatching: false,
			}
			emit = &f
		}
		d.mu.Unlock()

		if emit != nil {
			select {
			case d.out <- pipeline.MessageFromFrame(*emit, pipeline.Add):
			default:
				d.logger.Warn("dispatch output full, dropping frame")
			}
		}

		select {
		case <-d.stop:
			return
		case <-time.After(pace):
		}
	}
}

// Shutdown stops the timing goroutine and drops any buffered slices.
func (d *Dispatcher) Shutdown() error {
	d.shutdownOnce.Do(func() {
		close(d.stop)
		d.loopWg.Wait()

		d.mu.Lock()
		d.state = stateIdle
		d.buffer = nil
		d.mu.Unlock()

		close(d.out)
	})
	return nil
}
