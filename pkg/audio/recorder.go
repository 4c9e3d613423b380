package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/incremental-systems/dialogio/pkg/frame"
	"github.com/incremental-systems/dialogio/pkg/pipeline"
)

// A Recorder consumes frames and appends their raw PCM payload to a WAV file
// in arrival order. The container is finalized on Shutdown. There is no
// retry on a write failure: the failure is reported and recording stops.
type Recorder struct {
	logger *slog.Logger
	uuid   uuid.UUID

	filename    string
	sampleRate  int
	sampleWidth int

	fileHandle *os.File
	encoder    *wav.Encoder
	bufFormat  *goaudio.Format

	// Set after the first write failure; further frames are ignored.
	failed bool
}

// NewRecorder configures a recorder writing 16-bit mono PCM to filename.
func NewRecorder(filename string, sampleRate int, sampleWidth int) *Recorder {
	uuid := uuid.New()
	logger := slog.Default().With(
		"recorder uuid", uuid,
	)
	return &Recorder{
		logger:      logger,
		uuid:        uuid,
		filename:    filename,
		sampleRate:  sampleRate,
		sampleWidth: sampleWidth,
	}
}

// Setup creates the output file and the WAV encoder.
func (r *Recorder) Setup() error {
	if r.sampleWidth != 2 {
		return fmt.Errorf("recorder supports 16-bit PCM only, got sample width %d", r.sampleWidth)
	}

	f, err := os.Create(r.filename)
	if err != nil {
		r.logger.Error("could not create recording file", "filename", r.filename, "err", err)
		return fmt.Errorf("creating recording file: %w", err)
	}
	r.fileHandle = f
	r.encoder = wav.NewEncoder(f, r.sampleRate, 8*r.sampleWidth, frame.NumChannels, 1)
	r.bufFormat = &goaudio.Format{
		SampleRate:  r.sampleRate,
		NumChannels: frame.NumChannels,
	}

	r.logger.Debug("recording to file", "filename", r.filename, "sampleRate", r.sampleRate)
	return nil
}

func (r *Recorder) PrepareRun() error { return nil }

// ProcessUpdate appends each added frame's payload to the file. The first
// write failure is returned to the caller and stops recording.
func (r *Recorder) ProcessUpdate(msg pipeline.UpdateMessage) (pipeline.UpdateMessage, error) {
	if r.failed {
		return nil, nil
	}
	for _, u := range msg {
		if u.Op != pipeline.Add {
			continue
		}
		af := u.Frame.Audio()

		buf := &goaudio.IntBuffer{
			Format:         r.bufFormat,
			Data:           make([]int, af.NFrames),
			SourceBitDepth: 8 * r.sampleWidth,
		}
		samples := make([]int16, af.NFrames)
		pcmSamples(af.RawAudio, samples)
		for i, s := range samples {
			buf.Data[i] = int(s)
		}

		if err := r.encoder.Write(buf); err != nil {
			r.failed = true
			r.logger.Error("recording write failed, stopping", "err", err)
			return nil, fmt.Errorf("writing recording frame: %w", err)
		}
	}
	return nil, nil
}

// Shutdown finalizes the WAV container and closes the file.
func (r *Recorder) Shutdown() error {
	var errs []error
	if r.encoder != nil {
		if err := r.encoder.Close(); err != nil {
			errs = append(errs, err)
		}
		r.encoder = nil
	}
	if r.fileHandle != nil {
		if err := r.fileHandle.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := r.fileHandle.Close(); err != nil {
			errs = append(errs, err)
		}
		r.fileHandle = nil
	}
	return errors.Join(errs...)
}
