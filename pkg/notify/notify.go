// Package notify posts short status messages to configured hook endpoints
// while a transcription is in flight, so callers can surface progress in a
// UI or chat channel. Deliveries are fire-and-forget.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/pitabwire/frame/workerpool"
	"gopkg.in/yaml.v3"

	"github.com/voicescribe/voicescribe/pkg/events"
	"github.com/voicescribe/voicescribe/pkg/urlvalidation"
)

// HookConfig describes one status hook endpoint.
type HookConfig struct {
	URL        string            `yaml:"url"         json:"url"`
	AuthType   string            `yaml:"auth_type"   json:"auth_type"` // "bearer", "hmac", "none"
	AuthSecret string            `yaml:"auth_secret" json:"auth_secret"`
	TimeoutSec int               `yaml:"timeout_sec" json:"timeout_sec"`
	Headers    map[string]string `yaml:"headers"     json:"headers,omitempty"`
}

type hooksFile struct {
	Hooks []HookConfig `yaml:"hooks"`
}

// LoadHooks reads hook endpoints from a YAML file. An empty path yields no
// hooks and no error.
func LoadHooks(path string) ([]HookConfig, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hooks file: %w", err)
	}
	var f hooksFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse hooks file %s: %w", path, err)
	}
	for i, h := range f.Hooks {
		if h.URL == "" {
			return nil, fmt.Errorf("hooks file %s: hook %d has no url", path, i)
		}
	}
	return f.Hooks, nil
}

// Message is the payload posted to each hook endpoint.
type Message struct {
	RequestID  string `json:"request_id"`
	Message    string `json:"message"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Final      bool   `json:"final"`
}

// Reporter fans status messages out to hook endpoints through the worker
// pool and mirrors them on the event bus. A nil Reporter discards
// everything, so callers never need to guard their Display calls.
type Reporter struct {
	hooks        []HookConfig
	pool         workerpool.WorkerPool
	publisher    *events.Publisher
	client       *http.Client
	validateOpts []urlvalidation.Option
}

// NewReporter creates a reporter for the given hooks. Returns nil when
// there are no hooks, which disables reporting entirely.
func NewReporter(hooks []HookConfig, pool workerpool.WorkerPool, publisher *events.Publisher, validateOpts ...urlvalidation.Option) *Reporter {
	if len(hooks) == 0 {
		return nil
	}
	return &Reporter{
		hooks:     hooks,
		pool:      pool,
		publisher: publisher,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		validateOpts: validateOpts,
	}
}

// Display sends a status message to every configured hook. Delivery runs in
// the background; failures are logged, never returned.
func (r *Reporter) Display(ctx context.Context, requestID, message string, durationMs int64, final bool) {
	if r == nil {
		return
	}

	r.publisher.Status(ctx, requestID, &events.StatusDisplayData{
		Message:    message,
		DurationMs: durationMs,
		Final:      final,
	})

	msg := Message{RequestID: requestID, Message: message, DurationMs: durationMs, Final: final}
	for _, hook := range r.hooks {
		hook := hook
		deliver := func() {
			if err := r.post(hook, msg); err != nil {
				slog.Warn("status hook delivery failed",
					slog.String("url", hook.URL), slog.String("error", err.Error()))
			}
		}
		if r.pool != nil {
			if err := r.pool.Submit(ctx, deliver); err != nil {
				slog.Warn("status hook submit failed", slog.String("error", err.Error()))
			}
		} else {
			go deliver()
		}
	}
}

func (r *Reporter) post(hook HookConfig, msg Message) error {
	if err := urlvalidation.ValidateHookURL(hook.URL, r.validateOpts...); err != nil {
		return fmt.Errorf("hook URL validation: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal status message: %w", err)
	}

	timeout := time.Duration(hook.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create hook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	switch hook.AuthType {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+hook.AuthSecret)
	case "hmac":
		req.Header.Set("X-Hook-Signature", hmacSign(hook.AuthSecret, body))
	}
	for k, v := range hook.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("hook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func hmacSign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%x", mac.Sum(nil))
}
