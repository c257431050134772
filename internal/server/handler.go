// Package server exposes the transcription service over REST.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/rs/xid"

	"github.com/voicescribe/voicescribe/internal/transcribe"
	"github.com/voicescribe/voicescribe/internal/transcribe/engine"
	"github.com/voicescribe/voicescribe/internal/transcribe/registry"
)

const defaultMaxUploadBytes = 100 << 20 // 100 MiB

// Handler provides REST endpoints for submitting audio and inspecting
// available backends.
type Handler struct {
	dispatcher     *transcribe.Dispatcher
	maxUploadBytes int64
}

// NewHandler creates a transcription API handler. maxUploadBytes caps the
// accepted request body; zero applies the default.
func NewHandler(dispatcher *transcribe.Dispatcher, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{dispatcher: dispatcher, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes registers all transcription API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/transcriptions", h.Create)
	mux.HandleFunc("GET /v1/backends", h.ListBackends)
}

// Create handles POST /v1/transcriptions. The request is multipart form
// data with the audio under "audio_file"; other form fields override the
// service configuration for this request.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio_file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read audio_file: "+err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "audio_file is empty")
		return
	}

	overrides := make(map[string]string)
	for _, key := range []string{"backend", "language", "translate", "timestamps", "timestamp_format"} {
		if v := r.FormValue(key); v != "" {
			overrides[key] = v
		}
	}

	requestID := xid.New().String()
	res, err := h.dispatcher.Dispatch(r.Context(), requestID,
		engine.Audio{Name: header.Filename, Data: data}, overrides)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TranscriptionResponse{
		ID:        requestID,
		Backend:   res.Backend,
		Text:      res.Text,
		ElapsedMs: res.Elapsed.Milliseconds(),
	})
}

// ListBackends handles GET /v1/backends.
func (h *Handler) ListBackends(w http.ResponseWriter, _ *http.Request) {
	backends := registry.Transcribers.List()
	sort.Strings(backends)
	writeJSON(w, http.StatusOK, BackendListResponse{
		Default:  h.dispatcher.DefaultBackend,
		Backends: backends,
	})
}

// statusFor maps backend errors to HTTP status codes.
func statusFor(err error) int {
	var rejection *engine.RemoteRejection
	var pollTimeout *engine.PollTimeoutError
	var transport *engine.TransportError
	var streaming *engine.StreamingError

	switch {
	case errors.Is(err, registry.ErrUnknownBackend):
		return http.StatusBadRequest
	case errors.As(err, &rejection):
		if rejection.Validation {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	case errors.As(err, &pollTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &transport), errors.As(err, &streaming):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
