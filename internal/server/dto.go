package server

// TranscriptionResponse is the reply for a completed transcription.
type TranscriptionResponse struct {
	ID        string `json:"id"`
	Backend   string `json:"backend"`
	Text      string `json:"text"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// BackendListResponse lists the registered backends.
type BackendListResponse struct {
	Default  string   `json:"default"`
	Backends []string `json:"backends"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
