// Package events defines the typed events the service emits while handling
// transcription requests, and a publisher that fans them out to the queue
// and to local in-process subscribers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pitabwire/frame/queue"
	"github.com/rs/xid"
)

// Publisher wraps frame's queue manager to emit typed events.
// It also supports local in-process subscriptions for event streaming.
type Publisher struct {
	queueMgr queue.Manager
	source   string
	queueRef string

	subMu       sync.RWMutex
	subscribers map[string]chan Envelope
}

// NewPublisher creates a publisher that emits events to the given queue
// reference. A nil queue manager is allowed; events then reach local
// subscribers only.
func NewPublisher(queueMgr queue.Manager, source string, queueRef string) *Publisher {
	return &Publisher{
		queueMgr:    queueMgr,
		source:      source,
		queueRef:    queueRef,
		subscribers: make(map[string]chan Envelope),
	}
}

// Emit publishes a typed event to the event bus and fans out to local subscribers.
func (p *Publisher) Emit(ctx context.Context, eventType EventType, requestID string, data interface{}) error {
	envelope := Envelope{
		ID:        xid.New().String(),
		Type:      eventType,
		Source:    p.source,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	envelope.Data = raw

	// Fan out to local subscribers (non-blocking).
	p.subMu.RLock()
	for id, ch := range p.subscribers {
		select {
		case ch <- envelope:
		default:
			slog.Warn("event dropped: subscriber buffer full",
				slog.String("subscriber", id), slog.String("event_type", string(eventType)))
		}
	}
	p.subMu.RUnlock()

	if p.queueMgr == nil {
		return nil
	}
	return p.queueMgr.Publish(ctx, p.queueRef, envelope)
}

// Typed emit helpers for the transcription lifecycle. All are safe on a nil
// publisher, and emit failures are logged rather than returned: the event
// side channel must never derail the request it describes.

// Submitted records that a transcription request entered a backend.
func (p *Publisher) Submitted(ctx context.Context, requestID string, data *TranscriptionSubmittedData) {
	p.fireAndForget(ctx, TranscriptionSubmitted, requestID, data)
}

// Completed records a finished transcription with its transcript.
func (p *Publisher) Completed(ctx context.Context, requestID string, data *TranscriptionCompletedData) {
	p.fireAndForget(ctx, TranscriptionCompleted, requestID, data)
}

// Failed records a transcription that ended in an error.
func (p *Publisher) Failed(ctx context.Context, requestID string, data *TranscriptionFailedData) {
	p.fireAndForget(ctx, TranscriptionFailed, requestID, data)
}

// Status mirrors a progress message shown to the user.
func (p *Publisher) Status(ctx context.Context, requestID string, data *StatusDisplayData) {
	p.fireAndForget(ctx, StatusDisplay, requestID, data)
}

func (p *Publisher) fireAndForget(ctx context.Context, eventType EventType, requestID string, data interface{}) {
	if p == nil {
		return
	}
	if err := p.Emit(ctx, eventType, requestID, data); err != nil {
		slog.WarnContext(ctx, "event emit failed",
			slog.String("event_type", string(eventType)), slog.String("error", err.Error()))
	}
}

// Subscribe creates a local in-process subscription for events.
// Returns a channel that receives Envelope values.
// The caller must call Unsubscribe with the same id to clean up.
func (p *Publisher) Subscribe(id string, bufSize int) <-chan Envelope {
	if bufSize <= 0 {
		bufSize = 64
	}
	ch := make(chan Envelope, bufSize)
	p.subMu.Lock()
	p.subscribers[id] = ch
	p.subMu.Unlock()
	return ch
}

// Unsubscribe removes a local subscription and closes its channel.
func (p *Publisher) Unsubscribe(id string) {
	p.subMu.Lock()
	if ch, ok := p.subscribers[id]; ok {
		close(ch)
		delete(p.subscribers, id)
	}
	p.subMu.Unlock()
}
