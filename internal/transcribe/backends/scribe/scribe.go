// Package scribe talks to a scribe transcription server: jobs are created
// with an upload, then polled by id until they reach a terminal status.
package scribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/voicescribe/voicescribe/internal/transcribe/backends/restutil"
	"github.com/voicescribe/voicescribe/internal/transcribe/engine"
	"github.com/voicescribe/voicescribe/internal/transcribe/format"
	"github.com/voicescribe/voicescribe/internal/transcribe/registry"
)

const backendName = "scribe"

// Poll cadence is fixed: no adaptive backoff. 200 tries at 3 s apart is
// roughly ten minutes of wall clock before the client gives up.
const (
	defaultPollInterval = 3 * time.Second
	defaultMaxTries     = 200
)

// Remote job statuses.
const (
	statusComplete         = "complete"
	statusFailed           = "failed"
	statusValidationFailed = "validation_failed"
)

func init() {
	registry.Transcribers.Register(backendName, func(config map[string]string) (engine.Transcriber, error) {
		baseURL := config["scribe_base_url"]
		if baseURL == "" {
			return nil, fmt.Errorf("scribe base URL required (set scribe_base_url in config)")
		}
		token := config["scribe_api_token"]
		if token == "" {
			return nil, fmt.Errorf("scribe API token required (set scribe_api_token in config)")
		}
		translate, _ := strconv.ParseBool(config["translate"])
		timestamps, _ := strconv.ParseBool(config["timestamps"])
		debug, _ := strconv.ParseBool(config["debug"])
		return &Backend{
			BaseURL:         strings.TrimRight(baseURL, "/"),
			Token:           token,
			Translate:       translate,
			Timestamps:      timestamps,
			TimestampFormat: config["timestamp_format"],
			PollInterval:    defaultPollInterval,
			MaxTries:        defaultMaxTries,
			Debug:           debug,
		}, nil
	})
}

// Backend implements engine.Transcriber against the create-then-poll API.
type Backend struct {
	BaseURL         string
	Token           string
	Translate       bool
	Timestamps      bool
	TimestampFormat string

	// PollInterval and MaxTries bound the poll loop. Production code uses
	// the package defaults; tests compress them.
	PollInterval time.Duration
	MaxTries     int

	Debug bool
}

type createResponse struct {
	ID string `json:"id"`
}

type jobResponse struct {
	Status       string           `json:"status"`
	Text         string           `json:"text"`
	TextSegments []engine.Segment `json:"text_segments"`
}

// Transcribe creates a remote job and polls it to a terminal outcome.
// Exactly one of four outcomes ends the loop: completion, remote failure,
// remote validation rejection, or the client-side try budget running out.
func (b *Backend) Transcribe(ctx context.Context, audio engine.Audio) (string, error) {
	jobID, err := b.submit(ctx, audio)
	if err != nil {
		return "", err
	}

	interval := b.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxTries := b.MaxTries
	if maxTries <= 0 {
		maxTries = defaultMaxTries
	}

	headers := map[string]string{"Authorization": "Bearer " + b.Token}
	jobURL := b.BaseURL + "/transcripts/" + jobID

	for try := 1; try <= maxTries; try++ {
		var job jobResponse
		if err := restutil.DoJSON(ctx, "GET", jobURL, headers, nil, &job); err != nil {
			return "", &engine.TransportError{Backend: backendName, Err: err}
		}

		if b.Debug {
			slog.DebugContext(ctx, "scribe poll",
				slog.String("job_id", jobID),
				slog.Int("try", try),
				slog.String("status", job.Status))
		}

		switch job.Status {
		case statusComplete:
			// Complete only counts once the transcript is attached; the
			// status can flip before the text does.
			if job.Text != "" || len(job.TextSegments) > 0 {
				return b.render(job), nil
			}
		case statusFailed:
			return "", &engine.RemoteRejection{Backend: backendName, Reason: "remote transcription failed"}
		case statusValidationFailed:
			return "", &engine.RemoteRejection{
				Backend:    backendName,
				Reason:     "input file rejected by remote validator",
				Validation: true,
			}
		}

		// Still queued or processing: wait out the fixed interval.
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return "", &engine.PollTimeoutError{Backend: backendName, Tries: maxTries}
}

// submit uploads the audio with the translate flag and returns the job id.
// A failure here is fatal; there is no job to poll.
func (b *Backend) submit(ctx context.Context, audio engine.Audio) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio_file", audio.Name)
	if err != nil {
		return "", fmt.Errorf("%s: create form file: %w", backendName, err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("%s: write form file: %w", backendName, err)
	}
	_ = writer.WriteField("translate", strconv.FormatBool(b.Translate))
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%s: close form: %w", backendName, err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + b.Token,
		"Content-Type":  writer.FormDataContentType(),
	}

	respBody, _, err := restutil.Upload(ctx, b.BaseURL+"/transcripts/", headers, &body)
	if err != nil {
		return "", &engine.TransportError{Backend: backendName, Err: err}
	}

	var created createResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("%s: decode create response: %w", backendName, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%s: create response missing job id", backendName)
	}
	return created.ID, nil
}

// render picks the timestamped or plain rendering of a completed job.
func (b *Backend) render(job jobResponse) string {
	if b.Timestamps && len(job.TextSegments) > 0 {
		return format.Render(job.TextSegments, b.TimestampFormat)
	}
	return job.Text
}
