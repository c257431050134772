package azurespeech

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voicescribe/voicescribe/internal/transcribe/engine"
)

// fakeEngine replays a scripted sequence of handler events from a goroutine,
// standing in for the websocket protocol engine.
type fakeEngine struct {
	script  func(h Handler)
	stops   atomic.Int32
	starter func(ctx context.Context, cfg SessionConfig, h Handler) (Session, error)

	gotCfg SessionConfig
}

func (f *fakeEngine) Start(ctx context.Context, cfg SessionConfig, h Handler) (Session, error) {
	f.gotCfg = cfg
	if f.starter != nil {
		return f.starter(ctx, cfg, h)
	}
	go f.script(h)
	return fakeSession{stops: &f.stops}, nil
}

type fakeSession struct{ stops *atomic.Int32 }

func (s fakeSession) Stop() error {
	s.stops.Add(1)
	return nil
}

// passthrough skips audio conversion in tests.
type passthrough struct{}

func (passthrough) Convert(_ context.Context, data []byte, _ bool) ([]byte, error) {
	return data, nil
}

func newTestBackend(eng Engine) *Backend {
	return &Backend{Engine: eng, Converter: passthrough{}, DetectLanguages: defaultDetectLanguages}
}

func TestTranscribeJoinsFragments(t *testing.T) {
	eng := &fakeEngine{script: func(h Handler) {
		h.Recognized("hello")
		h.Recognized("world")
		h.Stopped()
	}}

	got, err := newTestBackend(eng).Transcribe(context.Background(), engine.Audio{Name: "a.wav", Data: []byte("pcm")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello world" {
		t.Errorf("transcript = %q, want %q", got, "hello world")
	}
	if n := eng.stops.Load(); n == 0 {
		t.Error("session was never stopped")
	}
}

func TestTranscribeSkipsEmptyFragments(t *testing.T) {
	eng := &fakeEngine{script: func(h Handler) {
		h.Recognized("")
		h.Recognized("only this")
		h.NoMatch()
	}}

	got, err := newTestBackend(eng).Transcribe(context.Background(), engine.Audio{Data: []byte("pcm")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "only this" {
		t.Errorf("transcript = %q, want %q", got, "only this")
	}
}

func TestTranscribeCanceledSessionFails(t *testing.T) {
	cause := errors.New("connection reset")
	eng := &fakeEngine{script: func(h Handler) {
		h.Recognized("partial")
		h.Canceled(cause)
	}}

	_, err := newTestBackend(eng).Transcribe(context.Background(), engine.Audio{Data: []byte("pcm")})
	var serr *engine.StreamingError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want StreamingError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error does not wrap the session failure: %v", err)
	}
	if n := eng.stops.Load(); n == 0 {
		t.Error("failed session was not stopped")
	}
}

func TestTranscribeResolvesOnFirstTerminalEvent(t *testing.T) {
	eng := &fakeEngine{script: func(h Handler) {
		h.Recognized("first")
		h.Stopped()
		h.Canceled(errors.New("late cancel must be ignored"))
		h.Stopped()
	}}

	got, err := newTestBackend(eng).Transcribe(context.Background(), engine.Audio{Data: []byte("pcm")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "first" {
		t.Errorf("transcript = %q, want %q", got, "first")
	}
}

func TestTranscribeStartFailure(t *testing.T) {
	eng := &fakeEngine{starter: func(context.Context, SessionConfig, Handler) (Session, error) {
		return nil, errors.New("dial refused")
	}}

	_, err := newTestBackend(eng).Transcribe(context.Background(), engine.Audio{Data: []byte("pcm")})
	var serr *engine.StreamingError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want StreamingError", err)
	}
}

func TestTranscribeContextCancellation(t *testing.T) {
	eng := &fakeEngine{script: func(Handler) {}} // never resolves

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := newTestBackend(eng).Transcribe(ctx, engine.Audio{Data: []byte("pcm")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if n := eng.stops.Load(); n == 0 {
		t.Error("abandoned session was not stopped")
	}
}

func TestSessionConfigLanguageSelection(t *testing.T) {
	eng := &fakeEngine{script: func(h Handler) { h.Stopped() }}
	b := newTestBackend(eng)
	b.Language = "de-DE"

	if _, err := b.Transcribe(context.Background(), engine.Audio{Data: []byte("pcm")}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if eng.gotCfg.Language != "de-DE" {
		t.Errorf("session language = %q, want de-DE", eng.gotCfg.Language)
	}
	if len(eng.gotCfg.DetectLanguages) != 0 {
		t.Errorf("detection candidates set alongside a fixed language: %v", eng.gotCfg.DetectLanguages)
	}

	b.Language = "auto"
	if _, err := b.Transcribe(context.Background(), engine.Audio{Data: []byte("pcm")}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if eng.gotCfg.Language != "" {
		t.Errorf("auto should leave the session language empty, got %q", eng.gotCfg.Language)
	}
	if len(eng.gotCfg.DetectLanguages) != len(defaultDetectLanguages) {
		t.Errorf("detection candidates = %v", eng.gotCfg.DetectLanguages)
	}
}
