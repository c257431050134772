// Package transcribe routes transcription requests to a named backend and
// reports progress while the work runs.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/voicescribe/voicescribe/internal/transcribe/engine"
	"github.com/voicescribe/voicescribe/internal/transcribe/registry"
	"github.com/voicescribe/voicescribe/pkg/events"
	"github.com/voicescribe/voicescribe/pkg/notify"
)

var tracer = otel.Tracer("voicescribe/transcribe")

// Result is the outcome of a dispatched transcription.
type Result struct {
	Backend string
	Text    string
	Elapsed time.Duration
}

// Dispatcher builds the backend named by a request (falling back to the
// service default) and runs the transcription through it. Backend errors
// pass through unchanged so callers can classify them.
type Dispatcher struct {
	DefaultBackend string
	ServiceConfig  map[string]string
	Reporter       *notify.Reporter
	Publisher      *events.Publisher
}

// Dispatch transcribes the audio with the backend selected by overrides, or
// the default. Override keys shadow service configuration for this request
// only.
func (d *Dispatcher) Dispatch(ctx context.Context, requestID string, in engine.Audio, overrides map[string]string) (Result, error) {
	backend := overrides["backend"]
	if backend == "" {
		backend = d.DefaultBackend
	}

	ctx, span := tracer.Start(ctx, "transcribe.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("backend", backend),
		attribute.Int("audio_bytes", len(in.Data)),
	)

	tr, err := registry.Transcribers.Create(backend, d.merged(overrides))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{Backend: backend}, err
	}

	d.Publisher.Submitted(ctx, requestID, &events.TranscriptionSubmittedData{
		Backend:    backend,
		FileName:   in.Name,
		AudioBytes: len(in.Data),
	})
	d.Reporter.Display(ctx, requestID, fmt.Sprintf("Transcribing with %s...", backend), 0, false)

	start := time.Now()
	text, err := tr.Transcribe(ctx, in)
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int64("elapsed_ms", elapsed.Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		util.Log(ctx).WithError(err).Error("dispatch: backend transcription failed")

		d.Publisher.Failed(ctx, requestID, &events.TranscriptionFailedData{
			Backend: backend,
			Error:   err.Error(),
		})
		d.Reporter.Display(ctx, requestID, "Transcription failed", elapsed.Milliseconds(), true)
		return Result{Backend: backend, Elapsed: elapsed}, err
	}

	slog.InfoContext(ctx, "transcription complete",
		slog.String("backend", backend),
		slog.String("request_id", requestID),
		slog.Int64("elapsed_ms", elapsed.Milliseconds()),
		slog.Int("transcript_chars", len(text)))

	d.Publisher.Completed(ctx, requestID, &events.TranscriptionCompletedData{
		Backend:    backend,
		Transcript: text,
		ElapsedMs:  elapsed.Milliseconds(),
	})
	d.Reporter.Display(ctx, requestID, "Transcription complete", elapsed.Milliseconds(), true)

	return Result{Backend: backend, Text: text, Elapsed: elapsed}, nil
}

// merged overlays per-request overrides on the service configuration.
func (d *Dispatcher) merged(overrides map[string]string) map[string]string {
	cfg := make(map[string]string, len(d.ServiceConfig)+len(overrides))
	for k, v := range d.ServiceConfig {
		cfg[k] = v
	}
	for k, v := range overrides {
		cfg[k] = v
	}
	return cfg
}
