package audioconv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oov/audio/resampler"
)

// Resampler quality, on the library's 0..10 scale. 10 is what the rest of
// the pipeline can afford: frames are small and conversions are offline or
// per-chunk.
const resampleQuality = 10

// Resample converts raw 16-bit PCM bytes from inRate to outRate and returns
// the converted bytes. The resampling itself is delegated to the external
// resampler primitive; this function only handles the PCM16/float32 framing
// around it.
func Resample(raw []byte, inRate int, outRate int) []byte {
	if inRate == outRate {
		return raw
	}
	in := PCM16ToFloat32(raw)
	r := resampler.New(1, inRate, outRate, resampleQuality)

	// One-shot use of a streaming resampler: size the output generously and
	// keep whatever the primitive emits for this block.
	out := make([]float32, len(in)*outRate/inRate+resamplerSlack)
	_, written := r.ProcessFloat32(0, in, out)
	return Float32ToPCM16(out[:written], false)
}

const resamplerSlack = 512

// ResampleFile decodes the WAV file at src, resamples it to outRate and
// writes the result to dst, creating missing destination directories.
// Returns an error if the source is missing or undecodable, or if the
// destination cannot be written. There are no retries; the caller decides
// whether to abort.
func ResampleFile(src string, dst string, outRate int) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("source file %q: %w", src, err)
	}
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating destination directory %q: %w", dir, err)
		}
	}

	raw, info, err := LoadWAV(src)
	if err != nil {
		return fmt.Errorf("decoding source file %q: %w", src, err)
	}
	if info.NumChannels != 1 {
		return fmt.Errorf("source file %q has %d channels, want mono", src, info.NumChannels)
	}

	resampled := Resample(raw, info.SampleRate, outRate)
	if err := writeWAVFile(dst, resampled, outRate); err != nil {
		return fmt.Errorf("writing destination file %q: %w", dst, err)
	}
	return nil
}
