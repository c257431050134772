// Package whisperasr talks to a whisper-asr-webservice instance: a single
// synchronous multipart upload that blocks until the transcript is ready.
package whisperasr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/voicescribe/voicescribe/internal/transcribe/backends/restutil"
	"github.com/voicescribe/voicescribe/internal/transcribe/engine"
	"github.com/voicescribe/voicescribe/internal/transcribe/registry"
)

const backendName = "whisperasr"

func init() {
	registry.Transcribers.Register(backendName, func(config map[string]string) (engine.Transcriber, error) {
		baseURL := config["whisper_asr_url"]
		if baseURL == "" {
			return nil, fmt.Errorf("whisper-asr URL required (set whisper_asr_url in config)")
		}
		translate, _ := strconv.ParseBool(config["translate"])
		return &Backend{
			baseURL:   strings.TrimRight(baseURL, "/"),
			translate: translate,
			language:  config["language"],
		}, nil
	})
}

// Backend implements engine.Transcriber against the one-shot HTTP API.
type Backend struct {
	baseURL   string
	translate bool
	language  string
}

// Transcribe uploads the audio as a multipart form and extracts the
// transcript from the response. The service answers with either a raw text
// body or a JSON object carrying a "text" field depending on its configured
// output mode; both shapes are part of its contract and both are accepted.
func (b *Backend) Transcribe(ctx context.Context, audio engine.Audio) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio_file", audio.Name)
	if err != nil {
		return "", fmt.Errorf("%s: create form file: %w", backendName, err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("%s: write form file: %w", backendName, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%s: close form: %w", backendName, err)
	}

	task := "transcribe"
	if b.translate {
		task = "translate"
	}
	params := url.Values{}
	params.Set("task", task)
	if b.language != "" && b.language != "auto" {
		params.Set("language", b.language)
	}

	headers := map[string]string{
		"Content-Type": writer.FormDataContentType(),
	}

	respBody, contentType, err := restutil.Upload(ctx, b.baseURL+"/asr?"+params.Encode(), headers, &body)
	if err != nil {
		return "", &engine.TransportError{Backend: backendName, Err: err}
	}

	return extractText(respBody, contentType)
}

// extractText normalizes the two response shapes the service produces.
func extractText(body []byte, contentType string) (string, error) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	if mediaType == "application/json" {
		var resp struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("%s: decode response: %w", backendName, err)
		}
		return strings.TrimSpace(resp.Text), nil
	}

	return strings.TrimSpace(string(body)), nil
}
