package registry

import "github.com/voicescribe/voicescribe/internal/transcribe/engine"

// Transcribers is the process-wide registry of transcription backends.
var Transcribers = New[engine.Transcriber]()
