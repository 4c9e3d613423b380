// Package audioconv converts between the three audio representations used
// across the pipeline: packed little-endian 16-bit PCM bytes, normalized
// float32 samples in [-1, 1], and a headered WAV container wrapping 16-bit
// PCM. It also wraps the external resampling primitive.
package audioconv

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Scale factor between normalized float samples and 16-bit PCM.
const pcm16Scale = 32768

// PCM16ToFloat32 unpacks little-endian int16 PCM bytes into normalized
// float32 samples. A trailing odd byte is ignored.
func PCM16ToFloat32(raw []byte) []float32 {
	n := len(raw) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(s) / pcm16Scale
	}
	return samples
}

// Float32ToPCM16 packs normalized float32 samples into little-endian int16
// PCM bytes. The int16 cast truncates toward zero; there is no dithering.
// With clip set, samples are clamped to [-1, 1] first. Out-of-range values
// are saturated at the int16 bounds either way.
func Float32ToPCM16(samples []float32, clip bool) []byte {
	raw := make([]byte, 2*len(samples))
	for i, s := range samples {
		if clip {
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
		}
		v := float64(s) * pcm16Scale
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(int16(v)))
	}
	return raw
}

// wavHeader is the canonical 44-byte PCM WAV header.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

const wavHeaderSize = 44

// PCM16ToWAV wraps raw 16-bit PCM bytes in a WAV container header.
func PCM16ToWAV(raw []byte, sampleRate int, numChannels int, sampleWidth int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if numChannels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", numChannels)
	}
	if sampleWidth <= 0 {
		return nil, fmt.Errorf("sample width must be positive, got %d", sampleWidth)
	}

	bitsPerSample := uint16(8 * sampleWidth)
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(wavHeaderSize - 8 + len(raw)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(numChannels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * numChannels * sampleWidth),
		BlockAlign:    uint16(numChannels * sampleWidth),
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(raw)),
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(raw)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("writing wav header: %w", err)
	}
	buf.Write(raw)
	return buf.Bytes(), nil
}

// Float32ToWAV converts normalized float32 samples to a mono 16-bit WAV
// container at the given sample rate.
func Float32ToWAV(samples []float32, sampleRate int) ([]byte, error) {
	return PCM16ToWAV(Float32ToPCM16(samples, false), sampleRate, 1, 2)
}

// Info describes the audio carried by a WAV container or file.
type Info struct {
	NFrames     int
	SampleRate  int
	SampleWidth int
	NumChannels int
}

// WAVToPCM16 strips the container header from in-memory WAV bytes, returning
// the raw PCM payload and its format. Only uncompressed 16-bit PCM is
// accepted.
func WAVToPCM16(data []byte) ([]byte, Info, error) {
	if len(data) < wavHeaderSize {
		return nil, Info{}, fmt.Errorf("wav data too short: %d bytes", len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, Info{}, fmt.Errorf("reading wav header: %w", err)
	}
	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, Info{}, fmt.Errorf("not a RIFF/WAVE container")
	}
	if header.AudioFormat != 1 {
		return nil, Info{}, fmt.Errorf("unsupported wav audio format %d, want PCM", header.AudioFormat)
	}
	if header.BitsPerSample != 16 {
		return nil, Info{}, fmt.Errorf("unsupported bit depth %d, want 16", header.BitsPerSample)
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, Info{}, fmt.Errorf("wav data chunk not found")
	}

	payload := data[wavHeaderSize:]
	if int(header.Subchunk2Size) < len(payload) {
		payload = payload[:header.Subchunk2Size]
	}
	sampleWidth := int(header.BitsPerSample) / 8
	info := Info{
		NFrames:     len(payload) / (sampleWidth * int(header.NumChannels)),
		SampleRate:  int(header.SampleRate),
		SampleWidth: sampleWidth,
		NumChannels: int(header.NumChannels),
	}
	return payload, info, nil
}
