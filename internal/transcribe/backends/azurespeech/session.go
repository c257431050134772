package azurespeech

import "context"

// SessionConfig describes one recognition session.
type SessionConfig struct {
	// Language fixes the recognition language. Empty means detection.
	Language string
	// DetectLanguages is the candidate set for automatic language
	// detection; used only when Language is empty.
	DetectLanguages []string
	// WAV is the audio to recognize, 16 kHz 16-bit mono PCM.
	WAV []byte
}

// Handler receives session lifecycle events. The engine dispatches events
// one at a time, in order.
type Handler interface {
	// Recognized delivers a final recognized text fragment.
	Recognized(text string)
	// NoMatch signals that no further speech was detected.
	NoMatch()
	// Stopped signals that the session ended normally.
	Stopped()
	// Canceled signals that the session was aborted with an error.
	Canceled(err error)
}

// Session is a live recognition session.
type Session interface {
	// Stop releases the session's provider resources. Safe to call more
	// than once and after the session already ended.
	Stop() error
}

// Engine opens recognition sessions. It is the seam between the adapter
// logic and the vendor's streaming protocol.
type Engine interface {
	Start(ctx context.Context, cfg SessionConfig, h Handler) (Session, error)
}
