package main

import (
	"context"
	"log"
	"net/http"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"
	"github.com/pitabwire/frame/workerpool"

	vsconfig "github.com/voicescribe/voicescribe/config"
	"github.com/voicescribe/voicescribe/internal/httputil"
	"github.com/voicescribe/voicescribe/internal/server"
	"github.com/voicescribe/voicescribe/internal/transcribe"
	"github.com/voicescribe/voicescribe/pkg/events"
	"github.com/voicescribe/voicescribe/pkg/notify"

	// Register transcription backends via init().
	_ "github.com/voicescribe/voicescribe/internal/transcribe/backends/azurespeech"
	_ "github.com/voicescribe/voicescribe/internal/transcribe/backends/scribe"
	_ "github.com/voicescribe/voicescribe/internal/transcribe/backends/whisperasr"
)

const eventRef = "transcribe-events"
const eventURL = "mem://transcribe-events"

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[vsconfig.TranscribeConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("voicescribe"),
		frame.WithRegisterPublisher(eventRef, eventURL),
		frame.WithWorkerPoolOptions(
			workerpool.WithPoolCount(cfg.WorkerPoolCount),
			workerpool.WithSinglePoolCapacity(cfg.WorkerPoolCapacity),
		),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	pub := events.NewPublisher(srv.QueueManager(), "voicescribe", eventRef)

	hooks, err := notify.LoadHooks(cfg.NotifyHooksFile)
	if err != nil {
		log.Fatalf("loading notify hooks: %v", err)
	}
	reporter := notify.NewReporter(hooks, pool, pub)

	dispatcher := &transcribe.Dispatcher{
		DefaultBackend: cfg.DefaultBackend,
		ServiceConfig:  cfg.BackendConfig(),
		Reporter:       reporter,
		Publisher:      pub,
	}

	mux := http.NewServeMux()
	server.NewHandler(dispatcher, cfg.MaxUploadBytes).RegisterRoutes(mux)

	srv.Init(ctx, frame.WithHTTPHandler(httputil.H2CHandler(httputil.LoggingMiddleware(mux))))

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
