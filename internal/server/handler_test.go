package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voicescribe/voicescribe/internal/transcribe"
	"github.com/voicescribe/voicescribe/internal/transcribe/engine"
	"github.com/voicescribe/voicescribe/internal/transcribe/registry"
)

// scriptedTranscriber returns a fixed transcript or error and records the
// config it was built from.
type scriptedTranscriber struct {
	text string
	err  error

	gotConfig map[string]string
}

func (s *scriptedTranscriber) Transcribe(context.Context, engine.Audio) (string, error) {
	return s.text, s.err
}

func newTestHandler(t *testing.T, name string, text string, tErr error) (*Handler, *scriptedTranscriber) {
	t.Helper()
	tr := &scriptedTranscriber{text: text, err: tErr}
	registry.Transcribers.Register(name, func(config map[string]string) (engine.Transcriber, error) {
		tr.gotConfig = config
		return tr, nil
	})
	d := &transcribe.Dispatcher{DefaultBackend: name, ServiceConfig: map[string]string{"language": "auto"}}
	return NewHandler(d, 0), tr
}

// multipartBody builds a request body with an audio_file part and extra
// form fields.
func multipartBody(t *testing.T, audio []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if audio != nil {
		part, err := mw.CreateFormFile("audio_file", "clip.wav")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(audio)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func postTranscription(h *Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	req := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateTranscription(t *testing.T) {
	h, _ := newTestHandler(t, "srv-ok", "the transcript", nil)

	body, ct := multipartBody(t, []byte("audio bytes"), nil)
	rec := postTranscription(h, body, ct)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp TranscriptionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "the transcript" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Backend != "srv-ok" {
		t.Errorf("backend = %q", resp.Backend)
	}
	if resp.ID == "" {
		t.Error("response has no id")
	}
}

func TestCreatePassesOverrides(t *testing.T) {
	h, tr := newTestHandler(t, "srv-overrides", "ok", nil)

	body, ct := multipartBody(t, []byte("audio"), map[string]string{
		"language":  "fr",
		"translate": "true",
	})
	rec := postTranscription(h, body, ct)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if tr.gotConfig["language"] != "fr" {
		t.Errorf("language = %q, want override", tr.gotConfig["language"])
	}
	if tr.gotConfig["translate"] != "true" {
		t.Errorf("translate = %q", tr.gotConfig["translate"])
	}
}

func TestCreateMissingFile(t *testing.T) {
	h, _ := newTestHandler(t, "srv-nofile", "ok", nil)

	body, ct := multipartBody(t, nil, map[string]string{"language": "en"})
	rec := postTranscription(h, body, ct)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateUnknownBackend(t *testing.T) {
	h, _ := newTestHandler(t, "srv-known", "ok", nil)

	body, ct := multipartBody(t, []byte("audio"), map[string]string{"backend": "definitely-not-registered"})
	rec := postTranscription(h, body, ct)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation rejection", &engine.RemoteRejection{Backend: "b", Validation: true}, http.StatusUnprocessableEntity},
		{"remote failure", &engine.RemoteRejection{Backend: "b"}, http.StatusBadGateway},
		{"poll timeout", &engine.PollTimeoutError{Backend: "b", Tries: 200}, http.StatusGatewayTimeout},
		{"transport", &engine.TransportError{Backend: "b", Err: errors.New("conn refused")}, http.StatusBadGateway},
		{"streaming", &engine.StreamingError{Backend: "b", Err: errors.New("ws dropped")}, http.StatusBadGateway},
		{"unclassified", errors.New("surprise"), http.StatusInternalServerError},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			name := "srv-err-" + string(rune('a'+i))
			h, _ := newTestHandler(t, name, "", tc.err)

			body, ct := multipartBody(t, []byte("audio"), nil)
			rec := postTranscription(h, body, ct)

			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Error == "" {
				t.Error("error body is empty")
			}
		})
	}
}

func TestListBackends(t *testing.T) {
	h, _ := newTestHandler(t, "srv-list", "ok", nil)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/backends", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp BackendListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Default != "srv-list" {
		t.Errorf("default = %q", resp.Default)
	}
	found := false
	for _, b := range resp.Backends {
		if b == "srv-list" {
			found = true
		}
	}
	if !found {
		t.Errorf("backends %v missing srv-list", resp.Backends)
	}
}
