package audio

import "math"

// chunkSamples converts a frame length in seconds to a sample count.
func chunkSamples(sampleRate int, frameLength float64) int {
	return int(math.Round(float64(sampleRate) * frameLength))
}

// pcmBytes packs int16 samples into little-endian PCM bytes.
func pcmBytes(samples []int16) []byte {
	raw := make([]byte, 2*len(samples))
	for i, s := range samples {
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(s >> 8)
	}
	return raw
}

// pcmSamples unpacks little-endian PCM bytes into dst. If raw holds fewer
// samples than dst, the remainder is filled with zeros; excess bytes are
// ignored.
func pcmSamples(raw []byte, dst []int16) {
	n := len(raw) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
