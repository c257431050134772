package audio

import (
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// parseWAV walks the RIFF chunks of a WAV file and returns the sample rate,
// channel count and raw PCM payload. Only 16-bit PCM is supported.
func parseWAV(data []byte) (rate, channels int, pcm []byte, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, 0, nil, fmt.Errorf("not a RIFF/WAVE file")
	}

	var haveFmt bool
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return 0, 0, nil, fmt.Errorf("fmt chunk too short")
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			if audioFormat != 1 {
				return 0, 0, nil, fmt.Errorf("unsupported audio format %d (want PCM)", audioFormat)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			rate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bits != 16 {
				return 0, 0, nil, fmt.Errorf("unsupported bit depth %d (want 16)", bits)
			}
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	if !haveFmt || pcm == nil {
		return 0, 0, nil, fmt.Errorf("missing fmt or data chunk")
	}
	if channels < 1 {
		return 0, 0, nil, fmt.Errorf("invalid channel count %d", channels)
	}
	return rate, channels, pcm, nil
}

// appendWAVHeader appends a 44-byte header for 16-bit PCM audio.
func appendWAVHeader(out []byte, dataSize, rate, channels int) []byte {
	blockAlign := channels * 2
	byteRate := rate * blockAlign

	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+dataSize))
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, uint16(channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(rate))
	out = binary.LittleEndian.AppendUint32(out, uint32(byteRate))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, 16) // bits per sample

	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(dataSize))
	return out
}

// downmix averages interleaved channels into mono.
func downmix(pcm []byte, channels int) []byte {
	frameBytes := channels * 2
	frames := len(pcm) / frameBytes
	out := make([]byte, frames*2)

	for i := 0; i < frames; i++ {
		var sum int
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[off:])))
		}
		sample := int16(sum / channels)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}
