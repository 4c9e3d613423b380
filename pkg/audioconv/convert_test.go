package audioconv

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestPCM16Float32RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 1000, -1000, 32767, -32768}
	raw := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(s))
	}

	back := Float32ToPCM16(PCM16ToFloat32(raw), false)
	if len(back) != len(raw) {
		t.Fatalf("round trip produced %d bytes, want %d", len(back), len(raw))
	}
	// The truncating cast can lose at most one LSB per sample.
	for i := range samples {
		got := int16(binary.LittleEndian.Uint16(back[2*i:]))
		diff := int(got) - int(samples[i])
		if diff < -1 || diff > 1 {
			t.Errorf("sample %d = %d after round trip, want %d within 1 LSB", i, got, samples[i])
		}
	}
}

func TestPCM16ToFloat32Range(t *testing.T) {
	tests := []struct {
		sample int16
		want   float32
	}{
		{0, 0},
		{16384, 0.5},
		{-16384, -0.5},
		{-32768, -1},
	}
	for _, tt := range tests {
		raw := make([]byte, 2)
		binary.LittleEndian.PutUint16(raw, uint16(tt.sample))
		if got := PCM16ToFloat32(raw)[0]; got != tt.want {
			t.Errorf("PCM16ToFloat32(%d) = %v, want %v", tt.sample, got, tt.want)
		}
	}
}

func TestPCM16ToFloat32IgnoresTrailingOddByte(t *testing.T) {
	if got := PCM16ToFloat32([]byte{0, 0, 7}); len(got) != 1 {
		t.Errorf("decoded %d samples from 3 bytes, want 1", len(got))
	}
}

func TestFloat32ToPCM16Saturation(t *testing.T) {
	tests := []struct {
		name   string
		sample float32
		clip   bool
		want   int16
	}{
		{"positive overdrive unclipped", 2.5, false, 32767},
		{"negative overdrive unclipped", -2.5, false, -32768},
		{"positive overdrive clipped", 2.5, true, 32767},
		{"negative overdrive clipped", -2.5, true, -32768},
		{"full scale negative", -1, false, -32768},
		{"full scale positive saturates", 1, false, 32767},
		{"in range untouched", 0.25, true, 8192},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := Float32ToPCM16([]float32{tt.sample}, tt.clip)
			if got := int16(binary.LittleEndian.Uint16(raw)); got != tt.want {
				t.Errorf("Float32ToPCM16(%v, clip=%v) = %d, want %d", tt.sample, tt.clip, got, tt.want)
			}
		})
	}
}

func TestPCM16ToWAVHeader(t *testing.T) {
	payload := bytes.Repeat([]byte{1, 2}, 100)
	data, err := PCM16ToWAV(payload, 16000, 1, 2)
	if err != nil {
		t.Fatalf("PCM16ToWAV: %v", err)
	}
	if len(data) != wavHeaderSize+len(payload) {
		t.Fatalf("container is %d bytes, want %d", len(data), wavHeaderSize+len(payload))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		t.Fatalf("reading header back: %v", err)
	}
	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		t.Errorf("container magic = %q/%q", header.ChunkID, header.Format)
	}
	if header.AudioFormat != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", header.AudioFormat)
	}
	if header.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", header.SampleRate)
	}
	if header.NumChannels != 1 {
		t.Errorf("channels = %d, want 1", header.NumChannels)
	}
	if header.BitsPerSample != 16 {
		t.Errorf("bit depth = %d, want 16", header.BitsPerSample)
	}
	if header.ByteRate != 32000 {
		t.Errorf("byte rate = %d, want 32000", header.ByteRate)
	}
	if header.BlockAlign != 2 {
		t.Errorf("block align = %d, want 2", header.BlockAlign)
	}
	if int(header.Subchunk2Size) != len(payload) {
		t.Errorf("data chunk size = %d, want %d", header.Subchunk2Size, len(payload))
	}
	if !bytes.Equal(data[wavHeaderSize:], payload) {
		t.Error("payload altered by container wrapping")
	}
}

func TestPCM16ToWAVRejectsBadFormat(t *testing.T) {
	tests := []struct {
		name                            string
		sampleRate, channels, sampleWidth int
	}{
		{"zero rate", 0, 1, 2},
		{"negative rate", -16000, 1, 2},
		{"zero channels", 16000, 0, 2},
		{"zero width", 16000, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PCM16ToWAV(nil, tt.sampleRate, tt.channels, tt.sampleWidth); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWAVRoundTrip(t *testing.T) {
	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}
	data, err := PCM16ToWAV(payload, 44100, 1, 2)
	if err != nil {
		t.Fatalf("PCM16ToWAV: %v", err)
	}

	back, info, err := WAVToPCM16(data)
	if err != nil {
		t.Fatalf("WAVToPCM16: %v", err)
	}
	if !bytes.Equal(back, payload) {
		t.Error("payload altered by round trip")
	}
	want := Info{NFrames: 100, SampleRate: 44100, SampleWidth: 2, NumChannels: 1}
	if info != want {
		t.Errorf("info = %+v, want %+v", info, want)
	}
}

func TestWAVToPCM16RejectsMalformedContainers(t *testing.T) {
	valid, err := PCM16ToWAV(make([]byte, 20), 16000, 1, 2)
	if err != nil {
		t.Fatalf("PCM16ToWAV: %v", err)
	}

	notRIFF := append([]byte(nil), valid...)
	copy(notRIFF[0:4], "JUNK")

	nonPCM := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(nonPCM[20:], 3) // IEEE float

	eightBit := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(eightBit[34:], 8)

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", valid[:10]},
		{"not riff", notRIFF},
		{"non pcm format", nonPCM},
		{"eight bit depth", eightBit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := WAVToPCM16(tt.data); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFloat32ToWAV(t *testing.T) {
	data, err := Float32ToWAV([]float32{0, 0.5, -0.5}, 22050)
	if err != nil {
		t.Fatalf("Float32ToWAV: %v", err)
	}
	payload, info, err := WAVToPCM16(data)
	if err != nil {
		t.Fatalf("WAVToPCM16: %v", err)
	}
	if info.SampleRate != 22050 || info.NumChannels != 1 || info.NFrames != 3 {
		t.Errorf("info = %+v", info)
	}
	if got := int16(binary.LittleEndian.Uint16(payload[2:])); got != 16384 {
		t.Errorf("second sample = %d, want 16384", got)
	}
}
