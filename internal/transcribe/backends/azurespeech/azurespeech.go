// Package azurespeech transcribes through the Azure Speech streaming
// service: a stateful recognition session that emits text fragments as the
// audio plays through it.
package azurespeech

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/voicescribe/voicescribe/internal/audio"
	"github.com/voicescribe/voicescribe/internal/transcribe/engine"
	"github.com/voicescribe/voicescribe/internal/transcribe/registry"
)

const backendName = "azurespeech"

// defaultDetectLanguages is the candidate set for automatic language
// detection. The service caps candidates at four.
var defaultDetectLanguages = []string{"en-US", "de-DE", "fr-FR", "es-ES"}

func init() {
	registry.Transcribers.Register(backendName, func(config map[string]string) (engine.Transcriber, error) {
		key := config["azure_speech_key"]
		if key == "" {
			return nil, fmt.Errorf("azure subscription key required (set azure_speech_key in config)")
		}
		region := config["azure_region"]
		if region == "" {
			return nil, fmt.Errorf("azure region required (set azure_region in config)")
		}

		candidates := defaultDetectLanguages
		if csv := config["azure_detect_languages"]; csv != "" {
			candidates = nil
			for _, c := range strings.Split(csv, ",") {
				if c = strings.TrimSpace(c); c != "" {
					candidates = append(candidates, c)
				}
			}
		}

		return &Backend{
			Engine:          &wsEngine{key: key, region: region},
			Converter:       audio.NewConverter(config["ffmpeg_path"]),
			Language:        config["language"],
			DetectLanguages: candidates,
		}, nil
	})
}

// Backend implements engine.Transcriber over a streaming recognition
// session. Recognized fragments are accumulated in arrival order and joined
// with single spaces.
type Backend struct {
	Engine          Engine
	Converter       audio.Converter
	Language        string
	DetectLanguages []string
}

func (b *Backend) Transcribe(ctx context.Context, in engine.Audio) (string, error) {
	wav, err := b.Converter.Convert(ctx, in.Data, true)
	if err != nil {
		return "", fmt.Errorf("%s: convert audio: %w", backendName, err)
	}

	cfg := SessionConfig{WAV: wav}
	if b.Language != "" && b.Language != "auto" {
		cfg.Language = b.Language
	} else {
		cfg.DetectLanguages = b.DetectLanguages
	}

	acc := newAccumulator()
	sess, err := b.Engine.Start(ctx, cfg, acc)
	if err != nil {
		return "", &engine.StreamingError{Backend: backendName, Err: err}
	}

	select {
	case <-acc.done:
	case <-ctx.Done():
		_ = sess.Stop()
		return "", ctx.Err()
	}

	// Release provider resources on both the error and the normal path
	// before surfacing the outcome.
	_ = sess.Stop()

	if err := acc.failure(); err != nil {
		return "", &engine.StreamingError{Backend: backendName, Err: err}
	}
	return acc.transcript(), nil
}

// accumulator collects recognized fragments and resolves exactly once on
// the first terminal event; later terminal events are no-ops.
type accumulator struct {
	mu    sync.Mutex
	parts []string
	err   error

	once sync.Once
	done chan struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{done: make(chan struct{})}
}

func (a *accumulator) Recognized(text string) {
	if text == "" {
		return
	}
	a.mu.Lock()
	a.parts = append(a.parts, text)
	a.mu.Unlock()
}

func (a *accumulator) NoMatch() { a.finish(nil) }

func (a *accumulator) Stopped() { a.finish(nil) }

func (a *accumulator) Canceled(err error) { a.finish(err) }

func (a *accumulator) finish(err error) {
	a.once.Do(func() {
		a.mu.Lock()
		a.err = err
		a.mu.Unlock()
		close(a.done)
	})
}

func (a *accumulator) failure() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *accumulator) transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.TrimSpace(strings.Join(a.parts, " "))
}
