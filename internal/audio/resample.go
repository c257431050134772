package audio

import (
	"encoding/binary"
)

// resample converts 16-bit mono PCM between sample rates using linear
// interpolation. Good enough for speech; recognition engines are tolerant.
func resample(in []byte, srcRate, dstRate int) []byte {
	if srcRate == dstRate {
		return in
	}
	inSamples := len(in) / 2
	if inSamples < 2 {
		return nil
	}

	outSamples := int(int64(inSamples) * int64(dstRate) / int64(srcRate))
	out := make([]byte, outSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := 0; i < outSamples; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := readSample(in, srcIdx)
		s1 := readSample(in, srcIdx+1)

		sample := int16(float64(s0) + frac*(float64(s1)-float64(s0)))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

func readSample(buf []byte, idx int) int16 {
	off := idx * 2
	if off+1 >= len(buf) {
		// Clamp to last sample.
		off = len(buf) - 2
	}
	if off < 0 {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(buf[off:]))
}
