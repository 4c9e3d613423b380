package audioconv

import (
	"encoding/binary"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// LoadWAV reads the WAV file at path and returns its payload as raw 16-bit
// PCM bytes plus format metadata.
func LoadWAV(path string) ([]byte, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, Info{}, fmt.Errorf("%q is not a decodable wav file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, Info{}, fmt.Errorf("decoding %q: %w", path, err)
	}

	raw := make([]byte, 2*len(buf.Data))
	for i, s := range buf.Data {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(int16(s)))
	}
	info := Info{
		NFrames:     len(buf.Data) / int(decoder.NumChans),
		SampleRate:  int(decoder.SampleRate),
		SampleWidth: int(decoder.BitDepth) / 8,
		NumChannels: int(decoder.NumChans),
	}
	return raw, info, nil
}

// LoadWAVBytes reads the file at path verbatim, container header included.
// Useful when a downstream consumer wants the headered representation.
func LoadWAVBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return data, nil
}

// writeWAVFile writes raw mono 16-bit PCM bytes to a WAV file at path.
func writeWAVFile(path string, raw []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	encoder := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: 1},
		Data:           make([]int, len(raw)/2),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}
	if err := encoder.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := encoder.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
