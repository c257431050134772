package azurespeech

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// One hundred milliseconds of 16 kHz 16-bit mono PCM per audio frame.
const audioChunkSize = 3200

// wsEngine speaks the Azure Speech websocket streaming protocol, keyed by
// subscription key and region. Messages are framed as header lines
// terminated by a blank line, followed by the payload; binary audio frames
// carry a big-endian 16-bit header-length prefix.
type wsEngine struct {
	key    string
	region string

	// endpoint overrides the service URL in tests.
	endpoint string
}

func (e *wsEngine) Start(ctx context.Context, cfg SessionConfig, h Handler) (Session, error) {
	q := url.Values{}
	q.Set("format", "simple")
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	} else {
		q.Set("lidEnabled", "true")
	}

	endpoint := e.endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("wss://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", e.region)
	}

	header := http.Header{}
	header.Set("Ocp-Apim-Subscription-Key", e.key)
	header.Set("X-ConnectionId", newRequestID())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint+"?"+q.Encode(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial speech endpoint: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial speech endpoint: %w", err)
	}

	s := &wsSession{conn: conn, handler: h, requestID: newRequestID()}

	if err := s.sendConfig(cfg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send session config: %w", err)
	}

	go s.readLoop()
	go s.pumpAudio(cfg.WAV)

	return s, nil
}

type wsSession struct {
	conn      *websocket.Conn
	handler   Handler
	requestID string

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Stop closes the connection, which also unblocks the read loop. Safe to
// call multiple times.
func (s *wsSession) Stop() error {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
	return nil
}

func (s *wsSession) sendConfig(cfg SessionConfig) error {
	speechConfig := map[string]any{
		"context": map[string]any{
			"system": map[string]string{"name": "voicescribe"},
		},
	}
	body, _ := json.Marshal(speechConfig)
	if err := s.sendText("speech.config", body); err != nil {
		return err
	}

	if len(cfg.DetectLanguages) > 0 {
		speechContext := map[string]any{
			"languageId": map[string]any{
				"languages": cfg.DetectLanguages,
				"mode":      "DetectAtAudioStart",
				"onSuccess": map[string]string{"action": "Recognize"},
			},
		}
		body, _ := json.Marshal(speechContext)
		if err := s.sendText("speech.context", body); err != nil {
			return err
		}
	}
	return nil
}

// pumpAudio streams the WAV in fixed-size frames, then an empty frame to
// mark end of audio. Write failures are left to the read loop to surface.
func (s *wsSession) pumpAudio(wav []byte) {
	for off := 0; off < len(wav); off += audioChunkSize {
		end := off + audioChunkSize
		if end > len(wav) {
			end = len(wav)
		}
		if err := s.sendAudio(wav[off:end]); err != nil {
			return
		}
	}
	_ = s.sendAudio(nil)
}

func (s *wsSession) sendText(path string, body []byte) error {
	header := fmt.Sprintf("Path: %s\r\nX-RequestId: %s\r\nX-Timestamp: %s\r\nContent-Type: application/json; charset=utf-8\r\n\r\n",
		path, s.requestID, time.Now().UTC().Format(time.RFC3339))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, append([]byte(header), body...))
}

func (s *wsSession) sendAudio(chunk []byte) error {
	header := fmt.Sprintf("Path: audio\r\nX-RequestId: %s\r\nX-Timestamp: %s\r\n\r\n",
		s.requestID, time.Now().UTC().Format(time.RFC3339))

	frame := make([]byte, 2+len(header)+len(chunk))
	binary.BigEndian.PutUint16(frame, uint16(len(header)))
	copy(frame[2:], header)
	copy(frame[2+len(header):], chunk)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// readLoop dispatches provider events to the handler, one at a time, in
// arrival order, until the connection ends.
func (s *wsSession) readLoop() {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if isExpectedClose(err) {
				s.handler.Stopped()
			} else {
				s.handler.Canceled(err)
			}
			return
		}

		path, body, err := parseMessage(msg)
		if err != nil {
			continue
		}

		switch path {
		case "speech.phrase":
			var phrase struct {
				RecognitionStatus string `json:"RecognitionStatus"`
				DisplayText       string `json:"DisplayText"`
			}
			if err := json.Unmarshal(body, &phrase); err != nil {
				continue
			}
			switch phrase.RecognitionStatus {
			case "Success":
				s.handler.Recognized(phrase.DisplayText)
			case "NoMatch", "InitialSilenceTimeout", "EndOfDictation":
				s.handler.NoMatch()
			case "Error":
				s.handler.Canceled(fmt.Errorf("recognition error reported by service"))
			}
		case "turn.end":
			s.handler.Stopped()
			return
		}
	}
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed)
}

// parseMessage splits a text message into its Path header and payload.
func parseMessage(msg []byte) (path string, body []byte, err error) {
	sep := bytes.Index(msg, []byte("\r\n\r\n"))
	if sep < 0 {
		return "", nil, fmt.Errorf("message missing header terminator")
	}
	body = msg[sep+4:]

	for _, line := range strings.Split(string(msg[:sep]), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Path") {
			path = strings.TrimSpace(value)
		}
	}
	if path == "" {
		return "", nil, fmt.Errorf("message missing Path header")
	}
	return path, body, nil
}

func newRequestID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
