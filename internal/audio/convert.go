// Package audio converts container audio into the 16 kHz mono PCM WAV the
// streaming recognition engine requires.
package audio

import (
	"context"
	"fmt"
)

// TargetSampleRate is what the streaming engine consumes.
const TargetSampleRate = 16000

// Converter transcodes audio bytes into 16 kHz PCM WAV. When mono is set the
// output is downmixed to a single channel.
type Converter interface {
	Convert(ctx context.Context, data []byte, mono bool) ([]byte, error)
}

// NewConverter picks the ffmpeg converter when a binary path is configured,
// falling back to the pure-Go WAV converter otherwise.
func NewConverter(ffmpegPath string) Converter {
	if ffmpegPath != "" {
		return &FFmpegConverter{Path: ffmpegPath}
	}
	return &WAVConverter{}
}

// WAVConverter handles WAV/RIFF input without external tooling. Inputs in
// other containers need the ffmpeg converter.
type WAVConverter struct{}

func (c *WAVConverter) Convert(_ context.Context, data []byte, mono bool) ([]byte, error) {
	rate, channels, pcm, err := parseWAV(data)
	if err != nil {
		return nil, fmt.Errorf("parse wav: %w", err)
	}

	if mono && channels > 1 {
		pcm = downmix(pcm, channels)
		channels = 1
	}
	if rate != TargetSampleRate {
		pcm = resample(pcm, rate, TargetSampleRate)
		rate = TargetSampleRate
	}

	out := make([]byte, 0, wavHeaderSize+len(pcm))
	out = appendWAVHeader(out, len(pcm), rate, channels)
	return append(out, pcm...), nil
}
