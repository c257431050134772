package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	TranscriptionSubmitted EventType = "transcription.submitted"
	TranscriptionCompleted EventType = "transcription.completed"
	TranscriptionFailed    EventType = "transcription.failed"
	StatusDisplay          EventType = "status.display"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Source    string            `json:"source"`
	RequestID string            `json:"request_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TranscriptionSubmittedData is the payload for transcription.submitted events.
type TranscriptionSubmittedData struct {
	Backend    string `json:"backend"`
	FileName   string `json:"file_name"`
	AudioBytes int    `json:"audio_bytes"`
}

// TranscriptionCompletedData is the payload for transcription.completed events.
type TranscriptionCompletedData struct {
	Backend    string `json:"backend"`
	Transcript string `json:"transcript"`
	ElapsedMs  int64  `json:"elapsed_ms"`
}

// TranscriptionFailedData is the payload for transcription.failed events.
type TranscriptionFailedData struct {
	Backend string `json:"backend"`
	Error   string `json:"error"`
}

// StatusDisplayData is the payload for status.display events, mirroring what
// notification hooks receive.
type StatusDisplayData struct {
	Message    string `json:"message"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Final      bool   `json:"final"`
}
