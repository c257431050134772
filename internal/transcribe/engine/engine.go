package engine

import (
	"context"
)

// Audio is a named binary blob to be transcribed. The caller is responsible
// for reading it from storage; backends never touch the filesystem.
type Audio struct {
	Name string
	Data []byte
}

// Options controls how a backend transcribes.
type Options struct {
	// Translate asks the provider to translate the transcript to English.
	Translate bool
	// Language is a language hint ("en", "de", ...) or "auto" for detection.
	Language string
	// Timestamps selects the timestamped per-segment rendering of the
	// transcript instead of the plain text.
	Timestamps bool
	// TimestampFormat is a Go time layout used when Timestamps is set.
	TimestampFormat string
}

// Segment is a time-bounded span of transcribed text. Start and End are
// offsets in seconds from the beginning of the audio; Start <= End.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcriber converts an audio file into a transcript string.
// Implementations hide the transport protocol of one provider.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}
